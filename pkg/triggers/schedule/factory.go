package schedule

import (
	"log/slog"

	"github.com/dukex/soarflow/pkg/protocol"
)

type TriggerFactory struct{}

func NewTriggerFactory() *TriggerFactory {
	return &TriggerFactory{}
}

func (*TriggerFactory) ID() string {
	return "schedule"
}

func (*TriggerFactory) Name() string {
	return "Schedule"
}

func (*TriggerFactory) Description() string {
	return "Emits a fixed number of review events paced by an interval or a cron expression"
}

func (*TriggerFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"interval": map[string]any{
				"type":        "number",
				"minimum":     0,
				"description": "Seconds to wait between events",
				"default":     DefaultInterval.Seconds(),
			},
			"runs": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"maximum":     MaxRuns,
				"description": "Number of events to emit",
				"default":     DefaultRuns,
			},
			"cron": map[string]any{
				"type":        "string",
				"description": "Standard cron expression; when set it paces events instead of interval",
			},
		},
	}
}

func (*TriggerFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Trigger, error) {
	return NewTrigger(config, logger)
}
