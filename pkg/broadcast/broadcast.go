// Package broadcast fans live run events out to attached observers.
package broadcast

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dukex/soarflow/pkg/models"
)

// DefaultQueueSize is the number of events buffered per subscription.
const DefaultQueueSize = 256

// Subscription is one observer attached to a run. Events arrive on C in
// publish order. C is closed after Detach.
type Subscription struct {
	C <-chan models.RunEvent

	runID   string
	queue   chan models.RunEvent
	done    chan struct{}
	dropped atomic.Int64
	once    sync.Once
}

// Dropped reports how many events were discarded because the observer fell
// behind by more than the queue size.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

type Broadcaster struct {
	logger    *slog.Logger
	queueSize int

	mu          sync.RWMutex
	subscribers map[string]map[*Subscription]struct{}
}

func New(logger *slog.Logger, queueSize int) *Broadcaster {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	return &Broadcaster{
		logger:      logger,
		queueSize:   queueSize,
		subscribers: make(map[string]map[*Subscription]struct{}),
	}
}

// Attach registers a new observer of runID. It receives only events
// published after Attach returns.
func (b *Broadcaster) Attach(runID string) *Subscription {
	out := make(chan models.RunEvent)

	sub := &Subscription{
		C:     out,
		runID: runID,
		queue: make(chan models.RunEvent, b.queueSize),
		done:  make(chan struct{}),
	}

	go sub.deliver(out)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[runID] == nil {
		b.subscribers[runID] = make(map[*Subscription]struct{})
	}

	b.subscribers[runID][sub] = struct{}{}

	return sub
}

// Detach removes the observer and stops its delivery goroutine, which then
// closes C. Detaching twice is a no-op.
func (b *Broadcaster) Detach(sub *Subscription) {
	b.mu.Lock()

	if subs, ok := b.subscribers[sub.runID]; ok {
		delete(subs, sub)

		if len(subs) == 0 {
			delete(b.subscribers, sub.runID)
		}
	}

	b.mu.Unlock()

	sub.once.Do(func() {
		close(sub.done)
	})
}

// Publish hands event to every observer of runID without blocking. Events for
// a run nobody observes are discarded.
func (b *Broadcaster) Publish(runID string, event models.RunEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers[runID] {
		select {
		case sub.queue <- event:
		default:
			if sub.dropped.Add(1) == 1 {
				b.logger.Warn("Live log observer is falling behind, dropping events", "run_id", runID)
			}
		}
	}
}

// Subscribers returns the number of observers attached to runID.
func (b *Broadcaster) Subscribers(runID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers[runID])
}

func (s *Subscription) deliver(out chan<- models.RunEvent) {
	defer close(out)

	for {
		select {
		case <-s.done:
			return
		case event := <-s.queue:
			select {
			case out <- event:
			case <-s.done:
				return
			}
		}
	}
}
