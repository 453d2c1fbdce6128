// Package schedule provides a trigger that emits paced review events.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/soarflow/pkg/models"
	"github.com/robfig/cron/v3"
)

const (
	DefaultInterval = 2 * time.Second
	DefaultRuns     = 2
	MaxRuns         = 10000
)

type Trigger struct {
	Interval time.Duration
	Runs     int
	CronExpr string

	schedule cron.Schedule
	now      func() time.Time
	logger   *slog.Logger
}

func NewTrigger(config map[string]any, logger *slog.Logger) (*Trigger, error) {
	if logger == nil {
		logger = slog.Default()
	}

	interval := DefaultInterval
	if v, ok := number(config["interval"]); ok {
		interval = time.Duration(v * float64(time.Second))
	}

	runs := DefaultRuns
	if v, ok := number(config["runs"]); ok {
		runs = int(v)
	}

	cronExpr, _ := config["cron"].(string)

	t := &Trigger{
		Interval: interval,
		Runs:     runs,
		CronExpr: cronExpr,
		now:      time.Now,
		logger:   logger.With("trigger", "schedule"),
	}

	err := t.Validate()
	if err != nil {
		return nil, err
	}

	if cronExpr != "" {
		t.schedule, err = cron.ParseStandard(cronExpr)
		if err != nil {
			return nil, fmt.Errorf("invalid cron expression: %w", err)
		}
	}

	return t, nil
}

func (t *Trigger) Validate() error {
	if t.Interval < 0 {
		return fmt.Errorf("schedule trigger interval must not be negative, got %s", t.Interval)
	}

	if t.Runs < 0 {
		return fmt.Errorf("schedule trigger runs must not be negative, got %d", t.Runs)
	}

	if t.Runs > MaxRuns {
		return fmt.Errorf("schedule trigger runs must not exceed %d, got %d", MaxRuns, t.Runs)
	}

	return nil
}

// Run emits Runs events, waiting between consecutive events. The wait ends
// early with the context error when ctx is cancelled.
func (t *Trigger) Run(ctx context.Context) ([]models.Seed, error) {
	if t.schedule != nil {
		t.logger.InfoContext(ctx, fmt.Sprintf("Schedule trigger running on '%s' for %d iterations", t.CronExpr, t.Runs))
	} else {
		t.logger.InfoContext(ctx, fmt.Sprintf("Schedule trigger running every %gs for %d iterations", t.Interval.Seconds(), t.Runs))
	}

	seeds := make([]models.Seed, 0)

	for i := range t.Runs {
		if i > 0 {
			err := t.wait(ctx)
			if err != nil {
				return nil, fmt.Errorf("schedule trigger interrupted after %d events: %w", i, err)
			}
		}

		t.logger.DebugContext(ctx, fmt.Sprintf("Generating scheduled event %d", i+1))

		seeds = append(seeds, models.Seed{
			"system": map[string]any{
				"user":   "service-account",
				"action": "iam_review",
			},
			"severity":     i + 1,
			"scheduled_at": t.now().UTC().Format(time.RFC3339),
		})
	}

	return seeds, nil
}

func (t *Trigger) wait(ctx context.Context) error {
	delay := t.Interval
	if t.schedule != nil {
		now := t.now()
		delay = t.schedule.Next(now).Sub(now)
	}

	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
