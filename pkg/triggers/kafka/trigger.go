// Package kafka provides a trigger that reads alerts from a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/dukex/soarflow/pkg/models"
)

const (
	DefaultMaxEvents   = 100
	DefaultIdleTimeout = 2 * time.Second
)

// ConsumerFunc opens a consumer for the given brokers.
type ConsumerFunc func(brokers []string, config *sarama.Config) (sarama.Consumer, error)

type Trigger struct {
	Topic       string
	Brokers     []string
	Partition   int32
	Offset      int64
	MaxEvents   int
	IdleTimeout time.Duration

	newConsumer ConsumerFunc
	logger      *slog.Logger
}

func NewTrigger(config map[string]any, logger *slog.Logger) (*Trigger, error) {
	if logger == nil {
		logger = slog.Default()
	}

	topic, _ := config["topic"].(string)

	offset := sarama.OffsetOldest
	switch config["offset"] {
	case nil, "oldest":
	case "newest":
		offset = sarama.OffsetNewest
	default:
		return nil, fmt.Errorf("kafka trigger offset must be 'oldest' or 'newest', got %v", config["offset"])
	}

	maxEvents := DefaultMaxEvents
	if v, ok := number(config["max_events"]); ok {
		maxEvents = int(v)
	}

	idleTimeout := DefaultIdleTimeout
	if v, ok := number(config["idle_timeout"]); ok {
		idleTimeout = time.Duration(v * float64(time.Second))
	}

	var partition int32
	if v, ok := number(config["partition"]); ok {
		partition = int32(v)
	}

	brokers := parseBrokers(config["brokers"])

	trigger := &Trigger{
		Topic:       topic,
		Brokers:     brokers,
		Partition:   partition,
		Offset:      offset,
		MaxEvents:   maxEvents,
		IdleTimeout: idleTimeout,
		newConsumer: sarama.NewConsumer,
		logger: logger.With(
			"trigger", "kafka",
			"topic", topic,
			"brokers", brokers,
		),
	}

	err := trigger.Validate()
	if err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.Topic == "" {
		return errors.New("kafka trigger topic is required")
	}

	if len(t.Brokers) == 0 {
		return errors.New("kafka trigger brokers are required")
	}

	if t.MaxEvents <= 0 {
		return fmt.Errorf("kafka trigger max_events must be positive, got %d", t.MaxEvents)
	}

	return nil
}

// Run reads messages until MaxEvents were received or no message arrived for
// IdleTimeout.
func (t *Trigger) Run(ctx context.Context) ([]models.Seed, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true

	consumer, err := t.newConsumer(t.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	defer func() {
		err := consumer.Close()
		if err != nil {
			t.logger.ErrorContext(ctx, "Error closing Kafka consumer", "error", err)
		}
	}()

	pc, err := consumer.ConsumePartition(t.Topic, t.Partition, t.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to consume partition %d of %s: %w", t.Partition, t.Topic, err)
	}

	defer func() {
		err := pc.Close()
		if err != nil {
			t.logger.ErrorContext(ctx, "Error closing Kafka partition consumer", "error", err)
		}
	}()

	t.logger.InfoContext(ctx, "Reading alert batch", "partition", t.Partition, "max_events", t.MaxEvents)

	seeds := make([]models.Seed, 0)

	idle := time.NewTimer(t.IdleTimeout)
	defer idle.Stop()

	for len(seeds) < t.MaxEvents {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-idle.C:
			t.logger.InfoContext(ctx, "Kafka trigger batch complete", "count", len(seeds))

			return seeds, nil
		case consumerErr, ok := <-pc.Errors():
			if !ok {
				return seeds, nil
			}

			return nil, fmt.Errorf("kafka consumer error: %w", consumerErr.Err)
		case message, ok := <-pc.Messages():
			if !ok {
				return seeds, nil
			}

			t.logger.DebugContext(ctx, "Received Kafka message",
				"partition", message.Partition,
				"offset", message.Offset,
			)

			seeds = append(seeds, decodeMessage(message))

			idle.Reset(t.IdleTimeout)
		}
	}

	t.logger.InfoContext(ctx, "Kafka trigger batch complete", "count", len(seeds))

	return seeds, nil
}

// decodeMessage keeps JSON object payloads as the seed and wraps anything else
// under "message". Delivery metadata is added under "kafka".
func decodeMessage(message *sarama.ConsumerMessage) models.Seed {
	var seed models.Seed

	err := json.Unmarshal(message.Value, &seed)
	if err != nil || seed == nil {
		seed = models.Seed{"message": string(message.Value)}
	}

	metadata := map[string]any{
		"topic":     message.Topic,
		"partition": int(message.Partition),
		"offset":    message.Offset,
	}

	if message.Key != nil {
		metadata["key"] = string(message.Key)
	}

	seed["kafka"] = metadata

	return seed
}

func parseBrokers(value any) []string {
	var raw []string

	switch v := value.(type) {
	case string:
		raw = strings.Split(v, ",")
	case []any:
		for _, b := range v {
			if s, ok := b.(string); ok {
				raw = append(raw, s)
			}
		}
	}

	if len(raw) == 0 {
		env := os.Getenv("KAFKA_BROKERS")
		if env == "" {
			env = "localhost:9092"
		}

		raw = strings.Split(env, ",")
	}

	brokers := make([]string, 0, len(raw))
	for _, broker := range raw {
		broker = strings.TrimSpace(broker)
		if broker != "" {
			brokers = append(brokers, broker)
		}
	}

	return brokers
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
