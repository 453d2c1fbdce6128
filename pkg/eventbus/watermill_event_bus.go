package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/soarflow/pkg/events"
)

// decoders returns an empty value for every event type the bus can carry.
var decoders = map[events.EventType]func() any{
	events.RunStartedEvent:     func() any { return &events.RunStarted{} },
	events.RunFinishedEvent:    func() any { return &events.RunFinished{} },
	events.TriggerToggledEvent: func() any { return &events.TriggerToggled{} },
}

type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger

	mu            sync.RWMutex
	subscriptions map[events.EventType]EventHandler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) EventBus {
	if logger == nil {
		logger = slog.Default()
	}

	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		logger:        logger.With("module", "eventbus"),
		subscriptions: make(map[events.EventType]EventHandler),
	}
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(events.Topic, msg)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			eb.dispatch(ctx, msg)
		}
	}()

	return nil
}

// dispatch acks every message. A nacked message is redelivered immediately by
// the gochannel backend, so a failing handler would spin forever.
func (eb *WatermillEventBus) dispatch(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

	eb.mu.RLock()
	handler, exists := eb.subscriptions[eventType]
	eb.mu.RUnlock()

	if !exists {
		return
	}

	decode, known := decoders[eventType]
	if !known {
		eb.logger.Warn("Dropping event of unknown type", "event_type", eventType)

		return
	}

	event := decode()

	err := json.Unmarshal(msg.Payload, event)
	if err != nil {
		eb.logger.Error("Failed to decode event", "event_type", eventType, "error", err)

		return
	}

	err = handler(ctx, event)
	if err != nil {
		eb.logger.Error("Event handler failed", "event_type", eventType, "error", err)
	}
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.mu.Lock()
	eb.subscriptions[eventType] = handler
	eb.mu.Unlock()

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}
