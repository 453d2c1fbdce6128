package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/soarflow/pkg/eventbus"
	"github.com/dukex/soarflow/pkg/events"
	"github.com/dukex/soarflow/pkg/models"
	"github.com/dukex/soarflow/pkg/playbook"
	"github.com/dukex/soarflow/pkg/tracker"
	"github.com/google/uuid"
)

// ErrTriggerDisabled is returned by Prepare when the playbook's trigger type
// has been disabled.
var ErrTriggerDisabled = errors.New("trigger is disabled")

// TriggerGate decides whether playbooks using a trigger type may start.
type TriggerGate interface {
	IsEnabled(triggerType string) bool
}

// Runner is the outer boundary of a run. It records the run in the tracker,
// turns the first error into a failed run and publishes lifecycle events.
type Runner struct {
	executor  *Executor
	tracker   *tracker.Tracker
	publisher eventbus.EventPublisher
	gate      TriggerGate
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string

	wg sync.WaitGroup
}

type RunnerOption func(*Runner)

// WithPublisher publishes RunStarted and RunFinished events on p.
func WithPublisher(p eventbus.EventPublisher) RunnerOption {
	return func(r *Runner) { r.publisher = p }
}

// WithTriggerGate makes Prepare refuse playbooks whose trigger is disabled.
func WithTriggerGate(g TriggerGate) RunnerOption {
	return func(r *Runner) { r.gate = g }
}

func NewRunner(executor *Executor, tr *tracker.Tracker, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner{
		executor: executor,
		tracker:  tr,
		logger:   logger.With("module", "runner"),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Prepare loads and validates the playbook at path. A failure here happens
// before any run exists: nothing is recorded and nothing is logged to a run.
func (r *Runner) Prepare(path string) (*models.Playbook, error) {
	pb, err := playbook.Load(path)
	if err != nil {
		return nil, err
	}

	if r.gate != nil && !r.gate.IsEnabled(pb.Trigger.Type) {
		return nil, fmt.Errorf("%w: %s", ErrTriggerDisabled, pb.Trigger.Type)
	}

	return pb, nil
}

// Start prepares the playbook, records the run and executes it in the
// background. ctx bounds the execution, so callers serving a request should
// pass a context that outlives it.
func (r *Runner) Start(ctx context.Context, path string) (string, error) {
	pb, err := r.Prepare(path)
	if err != nil {
		return "", err
	}

	runID, startedAt, err := r.begin(ctx, pb)
	if err != nil {
		return "", err
	}

	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		_, _ = r.execute(ctx, runID, pb, startedAt)
	}()

	return runID, nil
}

// Run executes the playbook at path synchronously and returns the final run
// record. The error is the one that failed the run, if any; the record is nil
// only when the run could not be started.
func (r *Runner) Run(ctx context.Context, path string) (*models.RunRecord, error) {
	pb, err := r.Prepare(path)
	if err != nil {
		return nil, err
	}

	runID, startedAt, err := r.begin(ctx, pb)
	if err != nil {
		return nil, err
	}

	return r.execute(ctx, runID, pb, startedAt)
}

// Wait blocks until every run launched by Start has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) begin(ctx context.Context, pb *models.Playbook) (string, time.Time, error) {
	runID := r.newID()
	startedAt := r.now().UTC()

	err := r.tracker.Start(ctx, runID, pb.Name, pb.Trigger.Type, startedAt)
	if err != nil {
		return "", time.Time{}, err
	}

	r.logger.InfoContext(ctx, "Run started", "run_id", runID, "playbook", pb.Name, "trigger", pb.Trigger.Type)
	r.publish(ctx, runID, events.NewRunStarted(runID, pb.Name, pb.Trigger.Type, startedAt))

	return runID, startedAt, nil
}

func (r *Runner) execute(ctx context.Context, runID string, pb *models.Playbook, startedAt time.Time) (*models.RunRecord, error) {
	logger := r.tracker.Logger(runID, r.logger.With("run_id", runID))

	status := models.RunStatusSuccess

	runErr := r.executeGuarded(ctx, pb, logger)

	// The run is finalized even when ctx was cancelled.
	finalCtx := context.WithoutCancel(ctx)

	if runErr != nil {
		status = models.RunStatusFailed

		logger.ErrorContext(finalCtx, runErr.Error())
	}

	finishedAt := r.now().UTC()

	err := r.tracker.Finish(finalCtx, runID, status, finishedAt, finishedAt.Sub(startedAt))
	if err != nil {
		r.logger.ErrorContext(finalCtx, "Failed to finalize run", "run_id", runID, "error", err)

		return nil, errors.Join(runErr, err)
	}

	record, err := r.tracker.GetRun(finalCtx, runID)
	if err != nil {
		return nil, errors.Join(runErr, err)
	}

	r.logger.InfoContext(finalCtx, "Run finished", "run_id", runID, "status", status, "duration", record.Duration)
	r.publish(finalCtx, runID, events.NewRunFinished(record, runErr))

	return record, runErr
}

// executeGuarded runs the executor and reports a panic that escaped it as the
// run's error, so the run is still finalized.
func (r *Runner) executeGuarded(ctx context.Context, pb *models.Playbook, logger *slog.Logger) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("run aborted: panic: %v", p)
		}
	}()

	_, err = r.executor.Execute(ctx, pb, logger)

	return err
}

func (r *Runner) publish(ctx context.Context, runID string, event eventbus.Event) {
	if r.publisher == nil {
		return
	}

	err := r.publisher.Publish(ctx, runID, event)
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to publish run event", "run_id", runID, "event_type", event.GetType(), "error", err)
	}
}
