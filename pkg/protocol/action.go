package protocol

import (
	"context"
	"log/slog"

	"github.com/dukex/soarflow/pkg/models"
)

// Action transforms the context of one event. The returned context is the one
// handed to the next action; it may be the argument itself.
type Action interface {
	Execute(ctx context.Context, executionCtx *models.ExecutionContext) (*models.ExecutionContext, error)
}

type ActionFactory interface {
	Factory
	Create(config map[string]any, logger *slog.Logger) (Action, error)
}
