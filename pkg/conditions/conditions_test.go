package conditions

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/dukex/soarflow/pkg/models"
	"github.com/dukex/soarflow/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func incident() *models.ExecutionContext {
	return models.NewExecutionContext(models.Seed{
		"email": map[string]any{
			"sender_domain": "suspicious.com",
			"sender_ip":     "203.0.113.5",
			"subject":       "Security alert",
		},
		"severity":  8,
		"score":     "7.5",
		"tags":      []any{"phishing"},
		"owner":     nil,
		"escalated": true,
	})
}

func evaluate(t *testing.T, factory protocol.ConditionFactory, config map[string]any) bool {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	condition, err := factory.Create(config, logger)
	require.NoError(t, err)

	result, err := condition.Evaluate(context.Background(), incident())
	require.NoError(t, err)

	return result
}

func TestEquals(t *testing.T) {
	tests := []struct {
		name     string
		config   map[string]any
		expected bool
	}{
		{
			name:     "nested string match",
			config:   map[string]any{"field": "email.sender_domain", "value": "suspicious.com"},
			expected: true,
		},
		{
			name:     "nested string mismatch",
			config:   map[string]any{"field": "email.sender_domain", "value": "example.com"},
			expected: false,
		},
		{
			name:     "int field against float value",
			config:   map[string]any{"field": "severity", "value": 8.0},
			expected: true,
		},
		{
			name:     "numeric string is not a number",
			config:   map[string]any{"field": "score", "value": 7.5},
			expected: false,
		},
		{
			name:     "missing field against value",
			config:   map[string]any{"field": "email.reply_to", "value": "x"},
			expected: false,
		},
		{
			name:     "missing field against null expects absence",
			config:   map[string]any{"field": "email.reply_to", "value": nil},
			expected: true,
		},
		{
			name:     "explicit null field",
			config:   map[string]any{"field": "owner", "value": nil},
			expected: true,
		},
		{
			name:     "list field",
			config:   map[string]any{"field": "tags", "value": []any{"phishing"}},
			expected: true,
		},
		{
			name:     "bool field against true",
			config:   map[string]any{"field": "escalated", "value": true},
			expected: true,
		},
		{
			name:     "bool field against one",
			config:   map[string]any{"field": "escalated", "value": 1},
			expected: true,
		},
		{
			name:     "bool field against zero",
			config:   map[string]any{"field": "escalated", "value": 0.0},
			expected: false,
		},
		{
			name:     "bool field against string",
			config:   map[string]any{"field": "escalated", "value": "true"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, evaluate(t, NewEqualsFactory(), tt.config))
		})
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		name     string
		config   map[string]any
		expected bool
	}{
		{
			name:     "substring present",
			config:   map[string]any{"field": "email.subject", "value": "alert"},
			expected: true,
		},
		{
			name:     "substring absent",
			config:   map[string]any{"field": "email.subject", "value": "invoice"},
			expected: false,
		},
		{
			name:     "non string field",
			config:   map[string]any{"field": "severity", "value": "8"},
			expected: false,
		},
		{
			name:     "list field",
			config:   map[string]any{"field": "tags", "value": "phishing"},
			expected: false,
		},
		{
			name:     "missing field",
			config:   map[string]any{"field": "email.body", "value": ""},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, evaluate(t, NewContainsFactory(), tt.config))
		})
	}
}

func TestGreaterThan(t *testing.T) {
	tests := []struct {
		name     string
		config   map[string]any
		expected bool
	}{
		{
			name:     "int above threshold",
			config:   map[string]any{"field": "severity", "value": 5},
			expected: true,
		},
		{
			name:     "equal is not greater",
			config:   map[string]any{"field": "severity", "value": 8},
			expected: false,
		},
		{
			name:     "numeric string field",
			config:   map[string]any{"field": "score", "value": "7"},
			expected: true,
		},
		{
			name:     "non numeric field",
			config:   map[string]any{"field": "email.subject", "value": 1},
			expected: false,
		},
		{
			name:     "non numeric value",
			config:   map[string]any{"field": "severity", "value": "high"},
			expected: false,
		},
		{
			name:     "missing field",
			config:   map[string]any{"field": "risk", "value": 0},
			expected: false,
		},
		{
			name:     "null field",
			config:   map[string]any{"field": "owner", "value": -1},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, evaluate(t, NewGreaterThanFactory(), tt.config))
		})
	}
}

func TestEvaluatesStructuredFields(t *testing.T) {
	ec := incident()
	ec.Ticket = &models.Ticket{ID: "TICKET-1001", Priority: "High"}

	condition, err := NewEqualsFactory().Create(map[string]any{"field": "ticket.priority", "value": "High"}, nil)
	require.NoError(t, err)

	result, err := condition.Evaluate(context.Background(), ec)
	require.NoError(t, err)
	assert.True(t, result)
}

func TestFactories(t *testing.T) {
	ids := make([]string, 0)
	for _, f := range Factories() {
		ids = append(ids, f.ID())
	}

	assert.Equal(t, []string{"equals", "contains", "greater_than"}, ids)
}
