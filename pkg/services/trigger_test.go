package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
	"unsafe"

	"github.com/dukex/soarflow/pkg/eventbus"
	"github.com/dukex/soarflow/pkg/events"
	"github.com/dukex/soarflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTypes []string

func (s staticTypes) TriggerTypes() []string { return s }

type fakeRuns struct {
	runs []*models.RunRecord
	err  error
}

func (f *fakeRuns) ListRuns(context.Context, int) ([]*models.RunRecord, error) {
	return f.runs, f.err
}

type capturePublisher struct {
	events []eventbus.Event
}

func (p *capturePublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.events = append(p.events, event)

	return nil
}

type captureSubscriber struct {
	handlers map[events.EventType]eventbus.EventHandler
}

func (s *captureSubscriber) Handle(eventType events.EventType, handler eventbus.EventHandler) error {
	s.handlers[eventType] = handler

	return nil
}

func (s *captureSubscriber) Subscribe(context.Context) error { return nil }

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestTriggerCatalog_EnableDisable(t *testing.T) {
	ctx := context.Background()
	pub := &capturePublisher{}
	catalog := NewTriggerCatalog(staticTypes{"event", "schedule"}, &fakeRuns{}, pub, discard)

	assert.True(t, catalog.IsEnabled("schedule"))

	status, err := catalog.Disable(ctx, "schedule")
	require.NoError(t, err)
	assert.Equal(t, TriggerStatus{Name: "schedule", Active: false}, status)
	assert.False(t, catalog.IsEnabled("schedule"))
	assert.True(t, catalog.IsEnabled("event"))

	_, err = catalog.Enable(ctx, "schedule")
	require.NoError(t, err)
	assert.True(t, catalog.IsEnabled("schedule"))

	require.Len(t, pub.events, 2)
	toggled, ok := pub.events[0].(events.TriggerToggled)
	require.True(t, ok)
	assert.Equal(t, "schedule", toggled.Trigger)
	assert.False(t, toggled.Active)

	_, err = catalog.Disable(ctx, "webhook")
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
	assert.Contains(t, err.Error(), "webhook")
}

func TestTriggerCatalog_DisableOwnsTheName(t *testing.T) {
	catalog := NewTriggerCatalog(staticTypes{"event", "schedule"}, &fakeRuns{}, nil, discard)

	// Request routers hand out names that alias a reused buffer.
	buf := []byte("schedule")
	name := unsafe.String(&buf[0], len(buf))

	_, err := catalog.Disable(context.Background(), name)
	require.NoError(t, err)

	copy(buf, "xxxxxxxx")

	assert.False(t, catalog.IsEnabled("schedule"))
	assert.True(t, catalog.IsEnabled("event"))
}

func TestTriggerCatalog_ListUsesHistory(t *testing.T) {
	started := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	finished := started.Add(time.Minute)
	older := started.Add(-time.Hour)

	runs := &fakeRuns{runs: []*models.RunRecord{
		{ID: "3", TriggerType: "schedule", StartedAt: started},
		{ID: "2", TriggerType: "event", StartedAt: started, FinishedAt: &finished},
		{ID: "1", TriggerType: "event", StartedAt: older, FinishedAt: &older},
	}}

	catalog := NewTriggerCatalog(staticTypes{"event", "kafka", "schedule"}, runs, nil, discard)
	_, err := catalog.Disable(context.Background(), "kafka")
	require.NoError(t, err)

	statuses, err := catalog.List(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	assert.Equal(t, "event", statuses[0].Name)
	require.NotNil(t, statuses[0].LastRun)
	assert.Equal(t, finished, *statuses[0].LastRun)

	assert.False(t, statuses[1].Active)
	assert.Nil(t, statuses[1].LastRun)

	require.NotNil(t, statuses[2].LastRun)
	assert.Equal(t, started, *statuses[2].LastRun)
}

func TestTriggerCatalog_SubscribeRecordsFinishedRuns(t *testing.T) {
	sub := &captureSubscriber{handlers: make(map[events.EventType]eventbus.EventHandler)}
	catalog := NewTriggerCatalog(staticTypes{"event"}, &fakeRuns{}, nil, discard)

	require.NoError(t, catalog.Subscribe(sub))

	handler := sub.handlers[events.RunFinishedEvent]
	require.NotNil(t, handler)

	finishedAt := time.Date(2025, 5, 2, 9, 30, 0, 0, time.UTC)
	event := events.NewRunFinished(&models.RunRecord{
		ID:          "run-1",
		TriggerType: "event",
		Status:      models.RunStatusSuccess,
		FinishedAt:  &finishedAt,
	}, nil)

	require.NoError(t, handler(context.Background(), &event))

	statuses, err := catalog.List(context.Background())
	require.NoError(t, err)
	require.NotNil(t, statuses[0].LastRun)
	assert.Equal(t, finishedAt, *statuses[0].LastRun)

	catalog.RecordRun("event", finishedAt.Add(-time.Hour))

	statuses, err = catalog.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, finishedAt, *statuses[0].LastRun)
}

func TestTriggerCatalog_ListPropagatesStoreErrors(t *testing.T) {
	catalog := NewTriggerCatalog(staticTypes{"event"}, &fakeRuns{err: errors.New("db down")}, nil, discard)

	_, err := catalog.List(context.Background())
	require.Error(t, err)
}
