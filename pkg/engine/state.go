package engine

import "github.com/dukex/soarflow/pkg/models"

// State is a stage of a playbook run.
type State string

const (
	StateLoading             State = "loading"
	StateValidating          State = "validating"
	StateTriggerResolving    State = "trigger_resolving"
	StateTriggerRunning      State = "trigger_running"
	StateConditionEvaluating State = "condition_evaluating"
	StateActionsExecuting    State = "actions_executing"
	StateSkipped             State = "skipped"
	StateCompleted           State = "completed"
	StateAborted             State = "aborted"
)

// Report summarizes one execution.
type Report struct {
	// State is the last stage reached: StateCompleted or StateAborted once
	// Execute returns.
	State State
	// Events is the number of seeds produced by the trigger.
	Events int
	// Acted counts events whose action chain ran to completion.
	Acted int
	// Skipped counts events stopped by a condition.
	Skipped int
	// Contexts holds the final context of every acted event, in event order.
	Contexts []*models.ExecutionContext
}
