package log_action

import (
	"log/slog"

	"github.com/dukex/soarflow/pkg/protocol"
)

func NewLogActionFactory() *LogActionFactory {
	return &LogActionFactory{}
}

type LogActionFactory struct{}

func (*LogActionFactory) ID() string {
	return "log"
}

func (*LogActionFactory) Name() string {
	return "Log"
}

func (*LogActionFactory) Description() string {
	return "Writes a templated message to the run log"
}

func (*LogActionFactory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"message"},
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message rendered with text/template over the event context",
			},
			"level": map[string]any{
				"type":    "string",
				"enum":    []string{"debug", "info", "error"},
				"default": "info",
			},
		},
	}
}

func (*LogActionFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Action, error) {
	if config == nil {
		config = map[string]any{}
	}

	return NewLogAction(config, logger), nil
}
