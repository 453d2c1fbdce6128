package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrigger(t *testing.T) {
	tests := []struct {
		name     string
		config   map[string]any
		interval time.Duration
		runs     int
		errorMsg string
	}{
		{
			name:     "defaults",
			config:   map[string]any{"type": "schedule"},
			interval: 2 * time.Second,
			runs:     2,
		},
		{
			name:     "fractional interval",
			config:   map[string]any{"interval": 0.5, "runs": 3},
			interval: 500 * time.Millisecond,
			runs:     3,
		},
		{
			name:     "negative runs",
			config:   map[string]any{"runs": -1},
			errorMsg: "runs must not be negative",
		},
		{
			name:     "runs above the limit",
			config:   map[string]any{"runs": 1e12},
			errorMsg: "runs must not exceed 10000",
		},
		{
			name:     "invalid cron",
			config:   map[string]any{"cron": "every minute"},
			errorMsg: "invalid cron expression",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger, err := NewTrigger(tt.config, nil)

			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.interval, trigger.Interval)
			assert.Equal(t, tt.runs, trigger.Runs)
		})
	}
}

func TestTrigger_Run(t *testing.T) {
	trigger, err := NewTriggerFactory().Create(map[string]any{"interval": 0, "runs": 3}, nil)
	require.NoError(t, err)

	seeds, err := trigger.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, seeds, 3)

	for i, seed := range seeds {
		assert.Equal(t, i+1, seed["severity"])
		assert.Equal(t, map[string]any{"user": "service-account", "action": "iam_review"}, seed["system"])
	}
}

func TestTrigger_RunWaitsBetweenEvents(t *testing.T) {
	trigger, err := NewTrigger(map[string]any{"interval": 0.05, "runs": 3}, nil)
	require.NoError(t, err)

	start := time.Now()

	seeds, err := trigger.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, seeds, 3)

	// two waits, none after the last event
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestTrigger_RunCancelled(t *testing.T) {
	trigger, err := NewTrigger(map[string]any{"interval": 60, "runs": 2}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = trigger.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTrigger_CronPacing(t *testing.T) {
	trigger, err := NewTrigger(map[string]any{"cron": "*/5 * * * *", "runs": 2}, nil)
	require.NoError(t, err)

	// one second before the next slot
	trigger.now = func() time.Time {
		return time.Date(2024, 1, 1, 10, 4, 59, 0, time.UTC)
	}

	seeds, err := trigger.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, seeds, 2)
}
