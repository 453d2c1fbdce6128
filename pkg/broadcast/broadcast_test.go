package broadcast

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukex/soarflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBroadcaster(queueSize int) *Broadcaster {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), queueSize)
}

func logEvent(runID, message string) models.RunEvent {
	return models.LogEvent(models.LogEntry{
		RunID:     runID,
		Level:     models.LogLevelInfo,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

func receive(t *testing.T, sub *Subscription) models.RunEvent {
	t.Helper()

	select {
	case event, ok := <-sub.C:
		require.True(t, ok, "subscription closed")

		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")

		return models.RunEvent{}
	}
}

func TestBroadcaster_DeliversInOrder(t *testing.T) {
	b := newBroadcaster(0)
	sub := b.Attach("run1")
	defer b.Detach(sub)

	for i := range 10 {
		b.Publish("run1", logEvent("run1", fmt.Sprint(i)))
	}

	for i := range 10 {
		assert.Equal(t, fmt.Sprint(i), receive(t, sub).Message)
	}
}

func TestBroadcaster_NoHistory(t *testing.T) {
	b := newBroadcaster(0)

	b.Publish("run1", logEvent("run1", "before"))

	sub := b.Attach("run1")
	defer b.Detach(sub)

	b.Publish("run1", logEvent("run1", "after"))

	assert.Equal(t, "after", receive(t, sub).Message)
}

func TestBroadcaster_IsolatesRuns(t *testing.T) {
	b := newBroadcaster(0)

	sub1 := b.Attach("run1")
	defer b.Detach(sub1)

	sub2 := b.Attach("run2")
	defer b.Detach(sub2)

	b.Publish("run2", logEvent("run2", "for run2"))
	b.Publish("run1", logEvent("run1", "for run1"))

	assert.Equal(t, "for run1", receive(t, sub1).Message)
	assert.Equal(t, "for run2", receive(t, sub2).Message)
}

func TestBroadcaster_FanOut(t *testing.T) {
	b := newBroadcaster(0)

	subs := []*Subscription{b.Attach("run1"), b.Attach("run1"), b.Attach("run1")}
	assert.Equal(t, 3, b.Subscribers("run1"))

	b.Publish("run1", models.CompleteEvent("run1", models.RunStatusSuccess, time.Now()))

	for _, sub := range subs {
		event := receive(t, sub)
		assert.Equal(t, models.RunEventComplete, event.Event)
		assert.Equal(t, models.RunStatusSuccess, event.Status)
		b.Detach(sub)
	}

	assert.Equal(t, 0, b.Subscribers("run1"))
}

func TestBroadcaster_DetachClosesChannel(t *testing.T) {
	b := newBroadcaster(0)
	sub := b.Attach("run1")

	b.Detach(sub)
	b.Detach(sub)

	select {
	case _, ok := <-sub.C:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel was not closed")
	}

	// publishing to a detached run neither blocks nor panics
	b.Publish("run1", logEvent("run1", "late"))
}

func TestBroadcaster_SlowObserverDoesNotBlockPublisher(t *testing.T) {
	b := newBroadcaster(2)
	sub := b.Attach("run1")
	defer b.Detach(sub)

	done := make(chan struct{})

	go func() {
		defer close(done)

		for i := range 100 {
			b.Publish("run1", logEvent("run1", fmt.Sprint(i)))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a slow observer")
	}

	assert.Positive(t, sub.Dropped())
	assert.Equal(t, "0", receive(t, sub).Message)
}

func TestBroadcaster_ConcurrentAttachDetach(t *testing.T) {
	b := newBroadcaster(0)

	var wg sync.WaitGroup

	for range 20 {
		wg.Add(2)

		go func() {
			defer wg.Done()

			sub := b.Attach("run1")
			b.Detach(sub)
		}()

		go func() {
			defer wg.Done()

			b.Publish("run1", logEvent("run1", "x"))
		}()
	}

	wg.Wait()
	assert.Equal(t, 0, b.Subscribers("run1"))
}
