package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/soarflow/pkg/broadcast"
	"github.com/dukex/soarflow/pkg/cmd"
	"github.com/dukex/soarflow/pkg/engine"
	"github.com/dukex/soarflow/pkg/eventbus"
	"github.com/dukex/soarflow/pkg/otelhelper"
	"github.com/dukex/soarflow/pkg/persistence"
	"github.com/dukex/soarflow/pkg/playbook"
	"github.com/dukex/soarflow/pkg/registry"
	"github.com/dukex/soarflow/pkg/services"
	"github.com/dukex/soarflow/pkg/tracker"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

// runtime holds the process wide components shared by every subcommand.
type runtime struct {
	logger      *slog.Logger
	registry    *registry.Registry
	persistence persistence.Persistence
	broadcaster *broadcast.Broadcaster
	tracker     *tracker.Tracker
	playbooks   *playbook.Store
	eventBus    eventbus.EventBus
	catalog     *services.TriggerCatalog
	runner      *engine.Runner

	closers []func(context.Context) error
}

// newRuntime wires the components in dependency order. The registry is
// complete before the runner exists, so no run can observe a partial one.
func newRuntime(ctx context.Context, command *cli.Command, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{logger: logger}

	reg, err := cmd.NewRegistry(logger, command.String("plugins-path"))
	if err != nil {
		return nil, fmt.Errorf("failed to load components: %w", err)
	}

	rt.registry = reg

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}

	rt.persistence = store
	rt.closers = append(rt.closers, store.Close)

	bus, err := cmd.NewEventBus(command.String("event-bus"), logger)
	if err != nil {
		_ = rt.Close(ctx)

		return nil, err
	}

	rt.eventBus = bus
	rt.closers = append(rt.closers, func(context.Context) error { return bus.Close() })

	tracer := otelhelper.NoopTracer()

	if command.Bool("otel") {
		var shutdown func(context.Context) error

		tracer, shutdown, err = otelhelper.NewTracer(ctx, "soarflow")
		if err != nil {
			_ = rt.Close(ctx)

			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}

		rt.closers = append(rt.closers, shutdown)
	}

	rt.broadcaster = broadcast.New(logger.With("module", "broadcast"), broadcast.DefaultQueueSize)
	rt.tracker = tracker.New(store, rt.broadcaster, logger.With("module", "tracker"))
	rt.playbooks = playbook.NewStore(command.String("playbooks-dir"))
	rt.catalog = services.NewTriggerCatalog(reg, rt.tracker, bus, logger.With("module", "triggers"))
	rt.runner = newRunner(reg, tracer, rt.tracker, rt.catalog, bus, logger)

	return rt, nil
}

func newRunner(
	reg *registry.Registry,
	tracer trace.Tracer,
	tr *tracker.Tracker,
	gate engine.TriggerGate,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *engine.Runner {
	return engine.NewRunner(
		engine.NewExecutor(reg, tracer),
		tr,
		logger.With("module", "engine"),
		engine.WithPublisher(publisher),
		engine.WithTriggerGate(gate),
	)
}

// Close waits for in-flight runs, then releases resources in reverse order.
func (rt *runtime) Close(ctx context.Context) error {
	if rt.runner != nil {
		rt.runner.Wait()
	}

	var errs []error

	for i := len(rt.closers) - 1; i >= 0; i-- {
		err := rt.closers[i](ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}

	rt.closers = nil

	return errors.Join(errs...)
}
