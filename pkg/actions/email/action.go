// Package email provides the action that queues a notification email.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/soarflow/pkg/models"
	"github.com/dukex/soarflow/pkg/protocol"
)

const (
	DefaultRecipient = "security@example.com"
	DefaultSubject   = "Security Notification"
)

type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "send_email"
}

func (*ActionFactory) Name() string {
	return "Send email"
}

func (*ActionFactory) Description() string {
	return "Queues an email notification about the event"
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recipient": map[string]any{"type": "string", "default": DefaultRecipient},
			"subject":   map[string]any{"type": "string", "default": DefaultSubject},
		},
	}
}

func (*ActionFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Action, error) {
	return NewAction(config, logger), nil
}

type Action struct {
	Recipient string
	Subject   string
	logger    *slog.Logger
}

func NewAction(config map[string]any, logger *slog.Logger) *Action {
	if logger == nil {
		logger = slog.Default()
	}

	recipient, _ := config["recipient"].(string)
	if recipient == "" {
		recipient = DefaultRecipient
	}

	subject, _ := config["subject"].(string)
	if subject == "" {
		subject = DefaultSubject
	}

	return &Action{
		Recipient: recipient,
		Subject:   subject,
		logger:    logger,
	}
}

func (a *Action) Execute(ctx context.Context, executionCtx *models.ExecutionContext) (*models.ExecutionContext, error) {
	if executionCtx == nil {
		return nil, errors.New("execution context is required")
	}

	a.logger.InfoContext(ctx, fmt.Sprintf("Sending email to %s with subject '%s'", a.Recipient, a.Subject))

	executionCtx.Notifications = append(executionCtx.Notifications, models.Notification{
		Recipient: a.Recipient,
		Subject:   a.Subject,
	})

	return executionCtx, nil
}
