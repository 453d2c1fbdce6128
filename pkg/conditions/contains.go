package conditions

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukex/soarflow/pkg/models"
	"github.com/dukex/soarflow/pkg/protocol"
)

type ContainsFactory struct{}

func NewContainsFactory() *ContainsFactory {
	return &ContainsFactory{}
}

func (*ContainsFactory) ID() string {
	return "contains"
}

func (*ContainsFactory) Name() string {
	return "Contains"
}

func (*ContainsFactory) Description() string {
	return "Passes when a string field contains the configured substring"
}

func (*ContainsFactory) Schema() map[string]any {
	return schema("string")
}

func (*ContainsFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Condition, error) {
	return &Contains{fieldCondition: newFieldCondition(config, logger)}, nil
}

// Contains is false for any field that is not a string, including a missing one.
type Contains struct {
	fieldCondition
}

func (c *Contains) Evaluate(_ context.Context, executionCtx *models.ExecutionContext) (bool, error) {
	actual, ok := c.resolve(executionCtx).(string)
	if !ok {
		return false, nil
	}

	expected, ok := c.value.(string)
	if !ok {
		return false, nil
	}

	return strings.Contains(actual, expected), nil
}
