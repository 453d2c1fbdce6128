package conditions

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/dukex/soarflow/pkg/fieldpath"
	"github.com/dukex/soarflow/pkg/models"
	"github.com/dukex/soarflow/pkg/protocol"
)

type EqualsFactory struct{}

func NewEqualsFactory() *EqualsFactory {
	return &EqualsFactory{}
}

func (*EqualsFactory) ID() string {
	return "equals"
}

func (*EqualsFactory) Name() string {
	return "Equals"
}

func (*EqualsFactory) Description() string {
	return "Passes when the field is strictly equal to the configured value"
}

func (*EqualsFactory) Schema() map[string]any {
	return schema("")
}

func (*EqualsFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Condition, error) {
	return &Equals{fieldCondition: newFieldCondition(config, logger)}, nil
}

// Equals compares the field with the configured value. A missing field only
// matches a configured null. Numbers compare by value across numeric types and
// a boolean equals the number 1 or 0. Strings never equal numbers.
type Equals struct {
	fieldCondition
}

func (c *Equals) Evaluate(_ context.Context, executionCtx *models.ExecutionContext) (bool, error) {
	actual := c.resolve(executionCtx)

	if fieldpath.IsMissing(actual) {
		return c.value == nil, nil
	}

	if a, ok := scalar(actual); ok {
		if b, ok := scalar(c.value); ok {
			return a == b, nil
		}
	}

	return reflect.DeepEqual(actual, c.value), nil
}

// scalar is numeric extended to booleans, which equal 1 and 0.
func scalar(v any) (float64, bool) {
	if b, ok := v.(bool); ok {
		if b {
			return 1, true
		}

		return 0, true
	}

	return numeric(v)
}
