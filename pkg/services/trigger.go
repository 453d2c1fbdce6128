package services

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dukex/soarflow/pkg/eventbus"
	"github.com/dukex/soarflow/pkg/events"
	"github.com/dukex/soarflow/pkg/models"
	"github.com/dukex/soarflow/pkg/persistence"
)

// TriggerStatus is the catalog view of one trigger type.
type TriggerStatus struct {
	Name    string     `json:"name"`
	Active  bool       `json:"active"`
	LastRun *time.Time `json:"last_run"`
}

type triggerTypes interface {
	TriggerTypes() []string
}

type runLister interface {
	ListRuns(ctx context.Context, limit int) ([]*models.RunRecord, error)
}

// TriggerCatalog tracks which trigger types may start runs and when each
// last ran. Every registered trigger starts enabled. Last run times are the
// newer of the stored run history and the RunFinished events seen on the bus.
type TriggerCatalog struct {
	registry  triggerTypes
	runs      runLister
	publisher eventbus.EventPublisher
	logger    *slog.Logger

	mu       sync.RWMutex
	disabled map[string]bool
	lastRun  map[string]time.Time
}

func NewTriggerCatalog(registry triggerTypes, runs runLister, publisher eventbus.EventPublisher, logger *slog.Logger) *TriggerCatalog {
	if logger == nil {
		logger = slog.Default()
	}

	return &TriggerCatalog{
		registry:  registry,
		runs:      runs,
		publisher: publisher,
		logger:    logger.With("module", "trigger_catalog"),
		disabled:  make(map[string]bool),
		lastRun:   make(map[string]time.Time),
	}
}

func (c *TriggerCatalog) List(ctx context.Context) ([]TriggerStatus, error) {
	history, err := c.historicLastRuns(ctx)
	if err != nil {
		return nil, err
	}

	names := c.registry.TriggerTypes()

	c.mu.RLock()
	defer c.mu.RUnlock()

	statuses := make([]TriggerStatus, 0, len(names))

	for _, name := range names {
		status := TriggerStatus{Name: name, Active: !c.disabled[name]}

		at, ok := history[name]
		if recorded, seen := c.lastRun[name]; seen && (!ok || recorded.After(at)) {
			at, ok = recorded, true
		}

		if ok {
			status.LastRun = &at
		}

		statuses = append(statuses, status)
	}

	return statuses, nil
}

func (c *TriggerCatalog) Enable(ctx context.Context, name string) (TriggerStatus, error) {
	return c.set(ctx, "trigger_catalog.enable", name, true)
}

func (c *TriggerCatalog) Disable(ctx context.Context, name string) (TriggerStatus, error) {
	return c.set(ctx, "trigger_catalog.disable", name, false)
}

// IsEnabled reports whether runs using triggerType may start.
func (c *TriggerCatalog) IsEnabled(triggerType string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return !c.disabled[triggerType]
}

// RecordRun notes that a run with triggerType ended at at. Older times are
// ignored.
func (c *TriggerCatalog) RecordRun(triggerType string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.lastRun[triggerType]; !ok || at.After(prev) {
		c.lastRun[triggerType] = at
	}
}

// Subscribe keeps last run times current from RunFinished events.
func (c *TriggerCatalog) Subscribe(bus eventbus.EventSubscriber) error {
	return bus.Handle(events.RunFinishedEvent, func(_ context.Context, event any) error {
		finished, ok := event.(*events.RunFinished)
		if !ok {
			return nil
		}

		c.RecordRun(finished.TriggerType, finished.Timestamp)

		return nil
	})
}

func (c *TriggerCatalog) set(ctx context.Context, op, name string, active bool) (TriggerStatus, error) {
	if !c.known(name) {
		return TriggerStatus{}, newNotFound(op, name)
	}

	name = strings.Clone(name)

	c.mu.Lock()
	if active {
		delete(c.disabled, name)
	} else {
		c.disabled[name] = true
	}
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Trigger toggled", "trigger", name, "active", active)

	if c.publisher != nil {
		err := c.publisher.Publish(ctx, name, events.NewTriggerToggled(name, active))
		if err != nil {
			c.logger.WarnContext(ctx, "Failed to publish trigger event", "trigger", name, "error", err)
		}
	}

	return TriggerStatus{Name: name, Active: active}, nil
}

func (c *TriggerCatalog) known(name string) bool {
	for _, t := range c.registry.TriggerTypes() {
		if t == name {
			return true
		}
	}

	return false
}

// historicLastRuns scans the most recent runs, newest first, and keeps the
// finish time (or start time for unfinished runs) of the first run seen per
// trigger type.
func (c *TriggerCatalog) historicLastRuns(ctx context.Context) (map[string]time.Time, error) {
	runs, err := c.runs.ListRuns(ctx, persistence.DefaultRunLimit)
	if err != nil {
		return nil, err
	}

	last := make(map[string]time.Time)

	for _, run := range runs {
		if _, seen := last[run.TriggerType]; seen {
			continue
		}

		at := run.StartedAt
		if run.FinishedAt != nil {
			at = *run.FinishedAt
		}

		last[run.TriggerType] = at
	}

	return last, nil
}
