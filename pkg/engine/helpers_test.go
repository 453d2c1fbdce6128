package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dukex/soarflow/pkg/actions/ticket"
	"github.com/dukex/soarflow/pkg/broadcast"
	"github.com/dukex/soarflow/pkg/conditions"
	"github.com/dukex/soarflow/pkg/models"
	"github.com/dukex/soarflow/pkg/persistence"
	"github.com/dukex/soarflow/pkg/persistence/file"
	"github.com/dukex/soarflow/pkg/protocol"
	"github.com/dukex/soarflow/pkg/registry"
	"github.com/dukex/soarflow/pkg/tracker"
	"github.com/dukex/soarflow/pkg/triggers/event"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// recorder counts action invocations by type, in call order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(name string) {
	r.mu.Lock()
	r.calls = append(r.calls, name)
	r.mu.Unlock()
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.calls...)
}

type recordingAction struct {
	name     string
	recorder *recorder
	err      error
	nilCtx   bool
	panics   bool
}

func (a *recordingAction) Execute(_ context.Context, ec *models.ExecutionContext) (*models.ExecutionContext, error) {
	a.recorder.record(a.name)

	if a.panics {
		var lookup map[string]int
		lookup[a.name]++
	}

	if a.err != nil {
		return nil, a.err
	}

	if a.nilCtx {
		return nil, nil
	}

	ec.Set(a.name, true)

	return ec, nil
}

type recordingActionFactory struct {
	id       string
	recorder *recorder
	err      error
	nilCtx   bool
	panics   bool
}

func (f *recordingActionFactory) ID() string             { return f.id }
func (f *recordingActionFactory) Name() string           { return f.id }
func (f *recordingActionFactory) Description() string    { return "" }
func (f *recordingActionFactory) Schema() map[string]any { return nil }

func (f *recordingActionFactory) Create(map[string]any, *slog.Logger) (protocol.Action, error) {
	return &recordingAction{name: f.id, recorder: f.recorder, err: f.err, nilCtx: f.nilCtx, panics: f.panics}, nil
}

type failingTrigger struct{}

func (failingTrigger) Run(context.Context) ([]models.Seed, error) {
	return nil, errors.New("feed unavailable")
}

type failingTriggerFactory struct{}

func (failingTriggerFactory) ID() string             { return "broken_feed" }
func (failingTriggerFactory) Name() string           { return "Broken feed" }
func (failingTriggerFactory) Description() string    { return "" }
func (failingTriggerFactory) Schema() map[string]any { return nil }

func (failingTriggerFactory) Create(map[string]any, *slog.Logger) (protocol.Trigger, error) {
	return failingTrigger{}, nil
}

// stalledTrigger blocks until its context is done.
type stalledTrigger struct{}

func (stalledTrigger) Run(ctx context.Context) ([]models.Seed, error) {
	<-ctx.Done()

	return nil, ctx.Err()
}

type stalledTriggerFactory struct{}

func (stalledTriggerFactory) ID() string             { return "stalled_feed" }
func (stalledTriggerFactory) Name() string           { return "Stalled feed" }
func (stalledTriggerFactory) Description() string    { return "" }
func (stalledTriggerFactory) Schema() map[string]any { return nil }

func (stalledTriggerFactory) Create(map[string]any, *slog.Logger) (protocol.Trigger, error) {
	return stalledTrigger{}, nil
}

type panickingTrigger struct{}

func (panickingTrigger) Run(context.Context) ([]models.Seed, error) {
	panic("feed cursor corrupted")
}

type panickingTriggerFactory struct{}

func (panickingTriggerFactory) ID() string             { return "corrupt_feed" }
func (panickingTriggerFactory) Name() string           { return "Corrupt feed" }
func (panickingTriggerFactory) Description() string    { return "" }
func (panickingTriggerFactory) Schema() map[string]any { return nil }

func (panickingTriggerFactory) Create(map[string]any, *slog.Logger) (protocol.Trigger, error) {
	return panickingTrigger{}, nil
}

// strictStore rejects log writes made with a context that is already done,
// the way the database-backed stores do.
type strictStore struct {
	persistence.Persistence
}

func (s strictStore) AddLog(ctx context.Context, entry models.LogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.Persistence.AddLog(ctx, entry)
}

func newTestRegistry(rec *recorder) *registry.Registry {
	reg := registry.NewRegistry(discard)

	reg.RegisterTrigger(event.NewTriggerFactory())
	reg.RegisterTrigger(failingTriggerFactory{})
	reg.RegisterTrigger(stalledTriggerFactory{})
	reg.RegisterTrigger(panickingTriggerFactory{})

	for _, f := range conditions.Factories() {
		reg.RegisterCondition(f)
	}

	reg.RegisterAction(ticket.NewActionFactory())
	reg.RegisterAction(&recordingActionFactory{id: "first", recorder: rec})
	reg.RegisterAction(&recordingActionFactory{id: "second", recorder: rec})
	reg.RegisterAction(&recordingActionFactory{id: "explode", recorder: rec, err: errors.New("mail relay refused")})
	reg.RegisterAction(&recordingActionFactory{id: "vanish", recorder: rec, nilCtx: true})
	reg.RegisterAction(&recordingActionFactory{id: "crash", recorder: rec, panics: true})

	return reg
}

type fixture struct {
	runner   *Runner
	tracker  *tracker.Tracker
	recorder *recorder
	dir      string
}

func newFixture(t *testing.T, opts ...RunnerOption) *fixture {
	t.Helper()

	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	rec := &recorder{}
	tr := tracker.New(strictStore{Persistence: store}, broadcast.New(discard, broadcast.DefaultQueueSize), discard)
	executor := NewExecutor(newTestRegistry(rec), nil)

	return &fixture{
		runner:   NewRunner(executor, tr, discard, opts...),
		tracker:  tr,
		recorder: rec,
		dir:      t.TempDir(),
	}
}

func (f *fixture) playbook(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(f.dir, name+".yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func (f *fixture) logs(t *testing.T, runID string) []models.LogEntry {
	t.Helper()

	logs, err := f.tracker.GetLogs(context.Background(), runID)
	require.NoError(t, err)

	return logs
}

func messages(entries []models.LogEntry, level models.LogLevel) []string {
	out := make([]string, 0)

	for _, e := range entries {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}

	return out
}
