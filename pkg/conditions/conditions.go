// Package conditions provides the built-in field comparison conditions.
package conditions

import (
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/dukex/soarflow/pkg/fieldpath"
	"github.com/dukex/soarflow/pkg/models"
	"github.com/dukex/soarflow/pkg/protocol"
)

// Factories returns the factories of every built-in condition.
func Factories() []protocol.ConditionFactory {
	return []protocol.ConditionFactory{
		NewEqualsFactory(),
		NewContainsFactory(),
		NewGreaterThanFactory(),
	}
}

// fieldCondition holds the configuration shared by every built-in condition:
// a dotted field path and the configured comparison value.
type fieldCondition struct {
	field  string
	value  any
	logger *slog.Logger
}

func newFieldCondition(config map[string]any, logger *slog.Logger) fieldCondition {
	field, _ := config["field"].(string)

	if logger == nil {
		logger = slog.Default()
	}

	return fieldCondition{
		field:  field,
		value:  config["value"],
		logger: logger,
	}
}

func (c fieldCondition) resolve(executionCtx *models.ExecutionContext) any {
	return fieldpath.Get(executionCtx.AsMap(), c.field)
}

func schema(valueType string) map[string]any {
	value := map[string]any{"description": "Value to compare the field against"}
	if valueType != "" {
		value["type"] = valueType
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"field": map[string]any{
				"type":        "string",
				"description": "Dotted path of the context field to inspect",
			},
			"value": value,
		},
	}
}

// toNumber converts numeric kinds, booleans and numeric strings to float64.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case bool:
		if n {
			return 1, true
		}

		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}

		return f, true
	}

	return numeric(v)
}

// numeric converts only integer and floating point kinds.
func numeric(v any) (float64, bool) {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
