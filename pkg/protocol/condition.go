package protocol

import (
	"context"
	"log/slog"

	"github.com/dukex/soarflow/pkg/models"
)

// Condition gates the action chain of one event.
type Condition interface {
	Evaluate(ctx context.Context, executionCtx *models.ExecutionContext) (bool, error)
}

type ConditionFactory interface {
	Factory
	Create(config map[string]any, logger *slog.Logger) (Condition, error)
}
