// Package engine runs playbooks: it resolves the trigger, threads every seed
// event through the condition chain and the action chain, and records the
// run in the tracker.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/soarflow/pkg/models"
	"github.com/dukex/soarflow/pkg/otelhelper"
	"github.com/dukex/soarflow/pkg/protocol"
	"github.com/dukex/soarflow/pkg/registry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var errNilContext = errors.New("action returned no execution context")

// Executor drives the trigger → conditions → actions pipeline of a single
// validated playbook. It keeps no per-run state and is safe for concurrent
// use.
type Executor struct {
	registry *registry.Registry
	tracer   trace.Tracer
}

func NewExecutor(reg *registry.Registry, tracer trace.Tracer) *Executor {
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Executor{registry: reg, tracer: tracer}
}

// Execute runs pb to completion. Components receive logger as their logging
// sink. The first error ends the run: no further events are processed and the
// report is left in StateAborted. Errors are not logged here; the caller owns
// the error entry.
func (e *Executor) Execute(ctx context.Context, pb *models.Playbook, logger *slog.Logger) (*Report, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "playbook.execute",
		attribute.String(otelhelper.PlaybookNameKey, pb.Name),
		attribute.String(otelhelper.TriggerTypeKey, pb.Trigger.Type),
	)
	defer span.End()

	report := &Report{State: StateTriggerResolving}

	err := e.execute(ctx, pb, logger, report)
	if err != nil {
		report.State = StateAborted
		otelhelper.RecordOutcome(span, string(report.State), err)

		return report, err
	}

	report.State = StateCompleted
	span.SetAttributes(attribute.Int(otelhelper.EventCountKey, report.Events))
	otelhelper.RecordOutcome(span, string(report.State), nil)

	return report, nil
}

func (e *Executor) execute(ctx context.Context, pb *models.Playbook, logger *slog.Logger, report *Report) error {
	trigger, err := guard(func() (protocol.Trigger, error) {
		return e.registry.CreateTrigger(pb.Trigger.Type, pb.Trigger.Config, logger)
	})
	if err != nil {
		return configurationError(models.CategoryTrigger, pb.Trigger.Type, err)
	}

	report.State = StateTriggerRunning
	logger.InfoContext(ctx, "Starting trigger: "+pb.Trigger.Type)

	seeds, err := guard(func() ([]models.Seed, error) {
		return trigger.Run(ctx)
	})
	if err != nil {
		return &models.ExecutionError{Category: models.CategoryTrigger, Type: pb.Trigger.Type, Err: err}
	}

	report.Events = len(seeds)
	logger.InfoContext(ctx, fmt.Sprintf("Trigger produced %d events", len(seeds)))

	for i, seed := range seeds {
		index := i + 1

		logger.InfoContext(ctx, fmt.Sprintf("Processing event %d for playbook '%s'", index, pb.Name))

		err = e.processEvent(ctx, pb, index, models.NewExecutionContext(seed), logger, report)
		if err != nil {
			return err
		}
	}

	logger.InfoContext(ctx, fmt.Sprintf("Processed %d events: %d acted on, %d skipped", report.Events, report.Acted, report.Skipped))

	return nil
}

func (e *Executor) processEvent(
	ctx context.Context,
	pb *models.Playbook,
	index int,
	ec *models.ExecutionContext,
	logger *slog.Logger,
	report *Report,
) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "playbook.event", attribute.Int(otelhelper.EventIndexKey, index))
	defer span.End()

	report.State = StateConditionEvaluating

	passed, err := e.evaluateConditions(ctx, pb.Conditions, ec, logger)
	if err != nil {
		otelhelper.RecordFailure(span, err)

		return err
	}

	if !passed {
		report.State = StateSkipped
		report.Skipped++

		logger.InfoContext(ctx, "Conditions not met. Skipping actions for this event.")

		return nil
	}

	report.State = StateActionsExecuting

	ec, err = e.executeActions(ctx, pb.Actions, ec, logger)
	if err != nil {
		otelhelper.RecordFailure(span, err)

		return err
	}

	report.Acted++
	report.Contexts = append(report.Contexts, ec)

	return nil
}

// evaluateConditions applies the chain with short-circuit AND semantics.
// Conditions are resolved as they are reached, so an unknown type behind a
// failing condition is not reported.
func (e *Executor) evaluateConditions(
	ctx context.Context,
	specs []models.StepSpec,
	ec *models.ExecutionContext,
	logger *slog.Logger,
) (bool, error) {
	for _, spec := range specs {
		condition, err := guard(func() (protocol.Condition, error) {
			return e.registry.CreateCondition(spec.Type, spec.Config, logger)
		})
		if err != nil {
			return false, configurationError(models.CategoryCondition, spec.Type, err)
		}

		ok, err := guard(func() (bool, error) {
			return condition.Evaluate(ctx, ec)
		})
		if err != nil {
			return false, &models.ExecutionError{Category: models.CategoryCondition, Type: spec.Type, Err: err}
		}

		status := "passed"
		if !ok {
			status = "failed"
		}

		logger.DebugContext(ctx, fmt.Sprintf("Condition %s: %s(field=%v)", status, spec.Type, spec.Field("field")))

		if !ok {
			return false, nil
		}
	}

	return true, nil
}

// executeActions runs the chain in declared order. Each action receives the
// context returned by the previous one.
func (e *Executor) executeActions(
	ctx context.Context,
	specs []models.StepSpec,
	ec *models.ExecutionContext,
	logger *slog.Logger,
) (*models.ExecutionContext, error) {
	for _, spec := range specs {
		action, err := guard(func() (protocol.Action, error) {
			return e.registry.CreateAction(spec.Type, spec.Config, logger)
		})
		if err != nil {
			return nil, configurationError(models.CategoryAction, spec.Type, err)
		}

		logger.InfoContext(ctx, "Executing action: "+spec.Type)

		next, err := e.executeAction(ctx, spec.Type, action, ec)
		if err != nil {
			return nil, err
		}

		ec = next
	}

	logger.InfoContext(ctx, fmt.Sprintf("Completed actions. Final context keys: %v", ec.Keys()))

	return ec, nil
}

func (e *Executor) executeAction(
	ctx context.Context,
	actionType string,
	action protocol.Action,
	ec *models.ExecutionContext,
) (*models.ExecutionContext, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "action.execute", attribute.String(otelhelper.ActionTypeKey, actionType))
	defer span.End()

	next, err := guard(func() (*models.ExecutionContext, error) {
		return action.Execute(ctx, ec)
	})
	if err == nil && next == nil {
		err = errNilContext
	}

	if err != nil {
		otelhelper.RecordFailure(span, err, attribute.String(otelhelper.ActionTypeKey, actionType))

		return nil, &models.ExecutionError{Category: models.CategoryAction, Type: actionType, Err: err}
	}

	return next, nil
}

// configurationError keeps registry errors as they are and reports any other
// construction failure as a misconfiguration of the step.
func configurationError(category models.Category, key string, err error) error {
	if models.IsConfigurationError(err) {
		return err
	}

	return &models.ConfigurationError{Category: category, Key: key, Reason: err.Error()}
}
