// Package enrichment provides the action that attaches IP threat intel to an event.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/soarflow/pkg/fieldpath"
	"github.com/dukex/soarflow/pkg/models"
	"github.com/dukex/soarflow/pkg/protocol"
)

const (
	UnknownIP       = "0.0.0.0"
	knownBadIP      = "203.0.113.5"
	defaultLocation = "Example City"
)

type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "enrich_ip"
}

func (*ActionFactory) Name() string {
	return "Enrich IP"
}

func (*ActionFactory) Description() string {
	return "Looks up reputation and location of the IP found at the configured field"
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"field": map[string]any{
				"type":        "string",
				"description": "Dotted path of the field holding the IP address",
			},
		},
	}
}

func (*ActionFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Action, error) {
	return NewAction(config, logger), nil
}

type Action struct {
	Field  string
	logger *slog.Logger
}

func NewAction(config map[string]any, logger *slog.Logger) *Action {
	if logger == nil {
		logger = slog.Default()
	}

	field, _ := config["field"].(string)

	return &Action{Field: field, logger: logger}
}

func (a *Action) Execute(ctx context.Context, executionCtx *models.ExecutionContext) (*models.ExecutionContext, error) {
	if executionCtx == nil {
		return nil, errors.New("execution context is required")
	}

	ip := a.lookupIP(executionCtx)

	enrichment := models.Enrichment{
		IP:         ip,
		Reputation: reputation(ip),
		Geo:        defaultLocation,
	}

	a.logger.InfoContext(ctx, fmt.Sprintf("Enriched IP %s with reputation %s", enrichment.IP, enrichment.Reputation))

	executionCtx.Enrichments = append(executionCtx.Enrichments, enrichment)

	return executionCtx, nil
}

func (a *Action) lookupIP(executionCtx *models.ExecutionContext) string {
	if a.Field == "" {
		return UnknownIP
	}

	value := fieldpath.Get(executionCtx.AsMap(), a.Field)
	if fieldpath.IsMissing(value) || value == nil {
		return UnknownIP
	}

	ip := fmt.Sprint(value)
	if ip == "" {
		return UnknownIP
	}

	return ip
}

func reputation(ip string) string {
	if ip == knownBadIP {
		return "suspicious"
	}

	return "unknown"
}
