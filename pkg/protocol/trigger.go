package protocol

import (
	"context"
	"log/slog"

	"github.com/dukex/soarflow/pkg/models"
)

// Trigger produces the seed events of one playbook run.
type Trigger interface {
	// Run returns a finite, ordered batch of seeds. It does not return until
	// every seed of this invocation has been produced. Any pacing between
	// events must honour ctx.
	Run(ctx context.Context) ([]models.Seed, error)
}

type TriggerFactory interface {
	Factory
	Create(config map[string]any, logger *slog.Logger) (Trigger, error)
}
