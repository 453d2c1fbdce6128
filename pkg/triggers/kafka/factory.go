package kafka

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/soarflow/pkg/protocol"
)

var (
	ErrConfigNil = errors.New("config cannot be nil")
)

type TriggerFactory struct{}

func NewTriggerFactory() *TriggerFactory {
	return &TriggerFactory{}
}

func (*TriggerFactory) ID() string {
	return "kafka"
}

func (*TriggerFactory) Name() string {
	return "Kafka"
}

func (*TriggerFactory) Description() string {
	return "Reads a bounded batch of alerts from a Kafka topic partition"
}

func (*TriggerFactory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"topic"},
		"properties": map[string]any{
			"topic": map[string]any{
				"type":        "string",
				"description": "Kafka topic to read alerts from",
			},
			"brokers": map[string]any{
				"type":        []string{"string", "array"},
				"description": "Comma separated broker list; KAFKA_BROKERS is used when empty",
			},
			"partition": map[string]any{
				"type":    "integer",
				"minimum": 0,
				"default": 0,
			},
			"offset": map[string]any{
				"type":    "string",
				"enum":    []string{"oldest", "newest"},
				"default": "oldest",
			},
			"max_events": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"default": DefaultMaxEvents,
			},
			"idle_timeout": map[string]any{
				"type":        "number",
				"minimum":     0,
				"description": "Seconds without a message after which the batch is complete",
				"default":     DefaultIdleTimeout.Seconds(),
			},
		},
	}
}

func (*TriggerFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Trigger, error) {
	if config == nil {
		return nil, ErrConfigNil
	}

	trigger, err := NewTrigger(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka trigger: %w", err)
	}

	return trigger, nil
}
