// Package ticket provides the action that opens an incident ticket.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/soarflow/pkg/models"
	"github.com/dukex/soarflow/pkg/protocol"
)

const (
	DefaultPriority = "Medium"
	DefaultSummary  = "Automated incident created"
	DefaultTicketID = "TICKET-1001"
)

type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "create_ticket"
}

func (*ActionFactory) Name() string {
	return "Create ticket"
}

func (*ActionFactory) Description() string {
	return "Opens an incident ticket for the event"
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"priority": map[string]any{"type": "string", "default": DefaultPriority},
			"summary":  map[string]any{"type": "string", "default": DefaultSummary},
		},
	}
}

func (*ActionFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Action, error) {
	return NewAction(config, logger), nil
}

type Action struct {
	Priority string
	Summary  string
	logger   *slog.Logger
}

func NewAction(config map[string]any, logger *slog.Logger) *Action {
	if logger == nil {
		logger = slog.Default()
	}

	priority, _ := config["priority"].(string)
	if priority == "" {
		priority = DefaultPriority
	}

	summary, _ := config["summary"].(string)
	if summary == "" {
		summary = DefaultSummary
	}

	return &Action{
		Priority: priority,
		Summary:  summary,
		logger:   logger,
	}
}

// Execute records the ticket on the context, replacing any earlier one. The
// ticket id comes from the event's "ticket_id" field when present.
func (a *Action) Execute(ctx context.Context, executionCtx *models.ExecutionContext) (*models.ExecutionContext, error) {
	if executionCtx == nil {
		return nil, errors.New("execution context is required")
	}

	id := DefaultTicketID
	if v, ok := executionCtx.Event["ticket_id"]; ok && v != nil {
		id = fmt.Sprint(v)
	}

	executionCtx.Ticket = &models.Ticket{
		ID:       id,
		Priority: a.Priority,
		Summary:  a.Summary,
	}

	a.logger.InfoContext(ctx, fmt.Sprintf("Ticket created: %s (Priority: %s)", id, a.Priority))

	return executionCtx, nil
}
