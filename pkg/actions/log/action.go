package log_action

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/soarflow/pkg/models"
	"github.com/dukex/soarflow/pkg/template"
)

type LogAction struct {
	Message string
	Level   string
	logger  *slog.Logger
}

func NewLogAction(config map[string]any, logger *slog.Logger) *LogAction {
	if logger == nil {
		logger = slog.Default()
	}

	message, _ := config["message"].(string)

	level, _ := config["level"].(string)
	if level == "" {
		level = "info"
	}

	return &LogAction{
		Message: message,
		Level:   level,
		logger:  logger,
	}
}

func (a *LogAction) Execute(ctx context.Context, executionCtx *models.ExecutionContext) (*models.ExecutionContext, error) {
	message, err := template.RenderString(a.Message, template.ContextData(executionCtx))
	if err != nil {
		return nil, fmt.Errorf("failed to render log message: %w", err)
	}

	a.logger.Log(ctx, slogLevel(a.Level), message)

	return executionCtx, nil
}

func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
