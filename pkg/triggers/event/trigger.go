// Package event provides a trigger that emits a fixed set of incident events.
package event

import (
	"context"
	"log/slog"
	"maps"

	"github.com/dukex/soarflow/pkg/models"
	"github.com/dukex/soarflow/pkg/protocol"
)

type TriggerFactory struct{}

func NewTriggerFactory() *TriggerFactory {
	return &TriggerFactory{}
}

func (*TriggerFactory) ID() string {
	return "event"
}

func (*TriggerFactory) Name() string {
	return "Event"
}

func (*TriggerFactory) Description() string {
	return "Emits the configured incident events, or a sample phishing incident when none are configured"
}

func (*TriggerFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"events": map[string]any{
				"type":        "array",
				"description": "Incident payloads to emit, in order",
				"items":       map[string]any{"type": "object"},
			},
		},
	}
}

func (*TriggerFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Trigger, error) {
	return NewTrigger(config, logger), nil
}

type Trigger struct {
	events []models.Seed
	logger *slog.Logger
}

func NewTrigger(config map[string]any, logger *slog.Logger) *Trigger {
	if logger == nil {
		logger = slog.Default()
	}

	t := &Trigger{logger: logger}

	configured, _ := config["events"].([]any)
	for _, e := range configured {
		if m, ok := e.(map[string]any); ok {
			t.events = append(t.events, models.Seed(maps.Clone(m)))
		}
	}

	return t
}

func (t *Trigger) Run(ctx context.Context) ([]models.Seed, error) {
	if len(t.events) > 0 {
		t.logger.InfoContext(ctx, "Event trigger invoked with configured events", "count", len(t.events))

		seeds := make([]models.Seed, 0, len(t.events))
		for _, e := range t.events {
			seeds = append(seeds, maps.Clone(e))
		}

		return seeds, nil
	}

	t.logger.InfoContext(ctx, "Event trigger invoked with mock incident data")

	return []models.Seed{sampleIncident()}, nil
}

func sampleIncident() models.Seed {
	return models.Seed{
		"email": map[string]any{
			"sender_domain": "suspicious.com",
			"sender_ip":     "203.0.113.5",
			"subject":       "Security alert",
		},
		"severity": 8,
	}
}
