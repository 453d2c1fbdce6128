package conditions

import (
	"context"
	"log/slog"

	"github.com/dukex/soarflow/pkg/models"
	"github.com/dukex/soarflow/pkg/protocol"
)

type GreaterThanFactory struct{}

func NewGreaterThanFactory() *GreaterThanFactory {
	return &GreaterThanFactory{}
}

func (*GreaterThanFactory) ID() string {
	return "greater_than"
}

func (*GreaterThanFactory) Name() string {
	return "Greater than"
}

func (*GreaterThanFactory) Description() string {
	return "Passes when the field, read as a number, exceeds the configured value"
}

func (*GreaterThanFactory) Schema() map[string]any {
	return schema("")
}

func (*GreaterThanFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Condition, error) {
	return &GreaterThan{fieldCondition: newFieldCondition(config, logger)}, nil
}

// GreaterThan never fails: a side that cannot be read as a number makes it false.
type GreaterThan struct {
	fieldCondition
}

func (c *GreaterThan) Evaluate(_ context.Context, executionCtx *models.ExecutionContext) (bool, error) {
	actual, ok := toNumber(c.resolve(executionCtx))
	if !ok {
		return false, nil
	}

	expected, ok := toNumber(c.value)
	if !ok {
		c.logger.Debug("Configured value is not a number", "field", c.field, "value", c.value)

		return false, nil
	}

	return actual > expected, nil
}
