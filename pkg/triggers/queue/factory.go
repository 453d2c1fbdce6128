package queue

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/soarflow/pkg/protocol"
)

type TriggerFactory struct{}

func NewTriggerFactory() *TriggerFactory {
	return &TriggerFactory{}
}

func (*TriggerFactory) ID() string {
	return "queue"
}

func (*TriggerFactory) Name() string {
	return "Redis queue"
}

func (*TriggerFactory) Description() string {
	return "Drains pending alerts from a Redis list"
}

func (*TriggerFactory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"queue"},
		"properties": map[string]any{
			"queue": map[string]any{
				"type":        "string",
				"description": "Name of the Redis list holding alerts",
			},
			"max_events": map[string]any{
				"type":        "integer",
				"minimum":     1,
				"description": "Upper bound of alerts drained by one run",
				"default":     DefaultMaxEvents,
			},
			"connection": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"addr":     map[string]any{"type": "string"},
					"password": map[string]any{"type": "string"},
					"db":       map[string]any{"type": []string{"string", "integer"}},
				},
			},
		},
	}
}

func (*TriggerFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Trigger, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	trigger, err := NewTrigger(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create queue trigger: %w", err)
	}

	return trigger, nil
}
