// Package tracker records the lifecycle and log of playbook runs and relays
// them to live observers.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/soarflow/pkg/broadcast"
	"github.com/dukex/soarflow/pkg/models"
	"github.com/dukex/soarflow/pkg/persistence"
)

var (
	// ErrRunNotActive is returned when writing to a run that was never
	// started by this tracker or has already finished.
	ErrRunNotActive = errors.New("run is not active")

	// ErrRunAlreadyStarted is returned when Start is called twice for a run.
	ErrRunAlreadyStarted = errors.New("run already started")
)

type runState struct {
	mu       sync.Mutex
	finished bool
}

type Tracker struct {
	store       persistence.Persistence
	broadcaster *broadcast.Broadcaster
	logger      *slog.Logger
	now         func() time.Time

	mu     sync.Mutex
	active map[string]*runState
}

func New(store persistence.Persistence, broadcaster *broadcast.Broadcaster, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}

	return &Tracker{
		store:       store,
		broadcaster: broadcaster,
		logger:      logger,
		now:         time.Now,
		active:      make(map[string]*runState),
	}
}

// Start creates the running record of a run. It must precede any other call
// for runID.
func (t *Tracker) Start(ctx context.Context, runID, playbook, triggerType string, startedAt time.Time) error {
	t.mu.Lock()
	if _, ok := t.active[runID]; ok {
		t.mu.Unlock()

		return fmt.Errorf("%w: %s", ErrRunAlreadyStarted, runID)
	}

	state := &runState{}
	state.mu.Lock()
	t.active[runID] = state
	t.mu.Unlock()

	defer state.mu.Unlock()

	err := t.store.CreateRun(ctx, &models.RunRecord{
		ID:          runID,
		Playbook:    playbook,
		TriggerType: triggerType,
		Status:      models.RunStatusRunning,
		StartedAt:   startedAt,
	})
	if err != nil {
		t.remove(runID)

		return fmt.Errorf("failed to create run record: %w", err)
	}

	t.logger.DebugContext(ctx, "Run started", "run_id", runID, "playbook", playbook)

	return nil
}

// AppendLog persists one entry and then forwards it to live observers.
// Entries of one run are stored and relayed in call order.
func (t *Tracker) AppendLog(ctx context.Context, runID string, level models.LogLevel, message string) error {
	state, err := t.lockActive(runID)
	if err != nil {
		return err
	}
	defer state.mu.Unlock()

	entry := models.LogEntry{
		RunID:     runID,
		Level:     level,
		Message:   message,
		CreatedAt: t.now().UTC(),
	}

	err = t.store.AddLog(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to store log entry: %w", err)
	}

	t.broadcaster.Publish(runID, models.LogEvent(entry))

	return nil
}

// Finish stores the terminal status of a run exactly once, then publishes
// the completion event. Later calls for runID fail with ErrRunNotActive.
func (t *Tracker) Finish(ctx context.Context, runID string, status models.RunStatus, finishedAt time.Time, duration time.Duration) error {
	if !status.IsTerminal() {
		return fmt.Errorf("cannot finish run %s with status %q", runID, status)
	}

	state, err := t.lockActive(runID)
	if err != nil {
		return err
	}
	defer state.mu.Unlock()

	err = t.store.FinishRun(ctx, runID, status, finishedAt, duration.Seconds())
	if err != nil {
		return fmt.Errorf("failed to finalize run: %w", err)
	}

	state.finished = true
	t.remove(runID)

	t.broadcaster.Publish(runID, models.CompleteEvent(runID, status, finishedAt))

	t.logger.DebugContext(ctx, "Run finished", "run_id", runID, "status", status)

	return nil
}

func (t *Tracker) ListRuns(ctx context.Context, limit int) ([]*models.RunRecord, error) {
	return t.store.FetchRuns(ctx, limit)
}

func (t *Tracker) GetRun(ctx context.Context, runID string) (*models.RunRecord, error) {
	return t.store.FetchRun(ctx, runID)
}

func (t *Tracker) GetLogs(ctx context.Context, runID string) ([]models.LogEntry, error) {
	return t.store.FetchLogs(ctx, runID)
}

// Active reports whether runID was started and not yet finished.
func (t *Tracker) Active(runID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.active[runID]

	return ok
}

func (t *Tracker) lockActive(runID string) (*runState, error) {
	t.mu.Lock()
	state, ok := t.active[runID]
	t.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotActive, runID)
	}

	state.mu.Lock()

	if state.finished {
		state.mu.Unlock()

		return nil, fmt.Errorf("%w: %s", ErrRunNotActive, runID)
	}

	return state, nil
}

func (t *Tracker) remove(runID string) {
	t.mu.Lock()
	delete(t.active, runID)
	t.mu.Unlock()
}
