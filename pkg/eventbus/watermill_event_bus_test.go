package eventbus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/dukex/soarflow/pkg/events"
	"github.com/dukex/soarflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) EventBus {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 10}, watermill.NewSlogLogger(logger))

	bus := NewWatermillEventBus(pubSub, pubSub, logger)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_DeliversTypedEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)

	received := make(chan *events.RunFinished, 1)

	require.NoError(t, bus.Handle(events.RunFinishedEvent, func(_ context.Context, event any) error {
		finished, ok := event.(*events.RunFinished)
		if assert.True(t, ok) {
			received <- finished
		}

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	finishedAt := time.Now().UTC()
	record := &models.RunRecord{
		ID:          "run-1",
		Playbook:    "Phishing Response",
		TriggerType: "event",
		Status:      models.RunStatusSuccess,
		FinishedAt:  &finishedAt,
	}

	// Unhandled types are acknowledged and skipped.
	require.NoError(t, bus.Publish(ctx, "run-1", events.NewRunStarted("run-1", "Phishing Response", "event", finishedAt)))
	require.NoError(t, bus.Publish(ctx, "run-1", events.NewRunFinished(record, nil)))

	select {
	case event := <-received:
		assert.Equal(t, "run-1", event.RunID)
		assert.Equal(t, models.RunStatusSuccess, event.Status)
		assert.Equal(t, "event", event.TriggerType)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestWatermillEventBus_HandlerErrorDoesNotRedeliver(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)

	calls := make(chan struct{}, 10)

	require.NoError(t, bus.Handle(events.TriggerToggledEvent, func(context.Context, any) error {
		calls <- struct{}{}

		return errors.New("boom")
	}))
	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, bus.Publish(ctx, "schedule", events.NewTriggerToggled("schedule", false)))

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, calls)
}
