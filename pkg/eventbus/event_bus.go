// Package eventbus carries run lifecycle events between the components of a
// process, or between processes when backed by Kafka.
package eventbus

import (
	"context"

	"github.com/dukex/soarflow/pkg/events"
)

// Event is any payload from the events package.
type Event interface {
	GetType() events.EventType
}

// EventPublisher publishes an event. key partitions events on brokers that
// support it; runs use their run id so one run's events stay ordered.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventHandler receives the decoded event as a pointer to its concrete type.
type EventHandler func(ctx context.Context, event any) error

// EventSubscriber dispatches incoming events by type. Handlers must be
// registered before Subscribe starts delivery.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
}
