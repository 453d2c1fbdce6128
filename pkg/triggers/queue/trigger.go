// Package queue provides a trigger that drains alerts from a Redis list.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dukex/soarflow/pkg/models"
	redis "github.com/redis/go-redis/v9"
)

const (
	DefaultMaxEvents = 100
	defaultAddr      = "localhost:6379"
	pingTimeout      = 5 * time.Second
)

type Trigger struct {
	Queue     string
	MaxEvents int
	Options   *redis.Options

	logger *slog.Logger
}

func NewTrigger(config map[string]any, logger *slog.Logger) (*Trigger, error) {
	if logger == nil {
		logger = slog.Default()
	}

	queue, _ := config["queue"].(string)

	maxEvents := DefaultMaxEvents
	switch v := config["max_events"].(type) {
	case int:
		maxEvents = v
	case float64:
		maxEvents = int(v)
	}

	connection, _ := config["connection"].(map[string]any)

	options, err := clientOptions(connection)
	if err != nil {
		return nil, err
	}

	trigger := &Trigger{
		Queue:     queue,
		MaxEvents: maxEvents,
		Options:   options,
		logger: logger.With(
			"trigger", "queue",
			"queue", queue,
		),
	}

	err = trigger.Validate()
	if err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.Queue == "" {
		return errors.New("queue trigger queue name is required")
	}

	if t.MaxEvents <= 0 {
		return fmt.Errorf("queue trigger max_events must be positive, got %d", t.MaxEvents)
	}

	return nil
}

// Run pops alerts until the list is empty or MaxEvents were read.
func (t *Trigger) Run(ctx context.Context) ([]models.Seed, error) {
	client := redis.NewClient(t.Options)

	defer func() {
		err := client.Close()
		if err != nil {
			t.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	err := client.Ping(pingCtx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	t.logger.InfoContext(ctx, "Draining alert queue", "addr", t.Options.Addr, "max_events", t.MaxEvents)

	seeds := make([]models.Seed, 0)

	for len(seeds) < t.MaxEvents {
		message, err := client.LPop(ctx, t.Queue).Result()
		if errors.Is(err, redis.Nil) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("failed to pop message from queue: %w", err)
		}

		seeds = append(seeds, decodeMessage(message))
	}

	t.logger.InfoContext(ctx, "Queue trigger drained alerts", "count", len(seeds))

	return seeds, nil
}

// decodeMessage turns a JSON object into a seed; any other payload is kept
// verbatim under "message".
func decodeMessage(message string) models.Seed {
	var seed models.Seed

	err := json.Unmarshal([]byte(message), &seed)
	if err != nil || seed == nil {
		return models.Seed{"message": message}
	}

	return seed
}

func clientOptions(connection map[string]any) (*redis.Options, error) {
	addr, _ := connection["addr"].(string)
	if addr == "" {
		addr = defaultAddr
	}

	password, _ := connection["password"].(string)

	db := 0

	switch v := connection["db"].(type) {
	case int:
		db = v
	case float64:
		db = int(v)
	case string:
		if v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid db value: %w", err)
			}

			db = parsed
		}
	}

	return &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}, nil
}
