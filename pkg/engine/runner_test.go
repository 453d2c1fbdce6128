package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/dukex/soarflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const severityPlaybook = `
name: High Severity
trigger:
  type: event
  events:
    - severity: 1
    - severity: 9
conditions:
  - type: greater_than
    field: severity
    value: 5
actions:
  - type: create_ticket
    priority: High
`

func countContaining(values []string, substr string) int {
	n := 0

	for _, v := range values {
		if strings.Contains(v, substr) {
			n++
		}
	}

	return n
}

func TestRunner_EndToEnd(t *testing.T) {
	f := newFixture(t)

	record, err := f.runner.Run(context.Background(), f.playbook(t, "severity", severityPlaybook))
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, models.RunStatusSuccess, record.Status)
	assert.Equal(t, "High Severity", record.Playbook)
	assert.Equal(t, "event", record.TriggerType)
	require.NotNil(t, record.FinishedAt)
	assert.GreaterOrEqual(t, record.Duration, 0.0)

	logs := f.logs(t, record.ID)
	info := messages(logs, models.LogLevelInfo)
	debug := messages(logs, models.LogLevelDebug)

	assert.Equal(t, 1, countContaining(info, "Executing action: create_ticket"))
	assert.Equal(t, 1, countContaining(info, "Ticket created: TICKET-1001 (Priority: High)"))
	assert.Equal(t, 1, countContaining(info, "Conditions not met. Skipping actions for this event."))
	assert.Contains(t, debug, "Condition failed: greater_than(field=severity)")
	assert.Contains(t, debug, "Condition passed: greater_than(field=severity)")
	assert.Empty(t, messages(logs, models.LogLevelError))

	assert.Less(t, indexOf(info, "Processing event 1"), indexOf(info, "Processing event 2"))
}

func indexOf(values []string, prefix string) int {
	for i, v := range values {
		if strings.HasPrefix(v, prefix) {
			return i
		}
	}

	return -1
}

func TestRunner_ActionsRunInOrderForEveryEvent(t *testing.T) {
	f := newFixture(t)

	path := f.playbook(t, "order", `
name: Order
trigger:
  type: event
  events: [{id: 1}, {id: 2}, {id: 3}]
conditions: []
actions:
  - type: first
  - type: second
`)

	record, err := f.runner.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, record.Status)

	assert.Equal(t, []string{"first", "second", "first", "second", "first", "second"}, f.recorder.Calls())
}

func TestRunner_ConditionsShortCircuit(t *testing.T) {
	f := newFixture(t)

	path := f.playbook(t, "short", `
name: Short circuit
trigger:
  type: event
  events: [{severity: 2}]
conditions:
  - type: greater_than
    field: severity
    value: 5
  - type: quarantine_check
    field: host
actions:
  - type: first
`)

	record, err := f.runner.Run(context.Background(), path)
	require.NoError(t, err)

	// The unknown condition is never reached.
	assert.Equal(t, models.RunStatusSuccess, record.Status)
	assert.Empty(t, f.recorder.Calls())
}

func TestRunner_UnknownKeysFailTheRun(t *testing.T) {
	tests := []struct {
		name     string
		document string
		category string
		key      string
		known    string
	}{
		{
			name: "trigger",
			document: `
name: Unknown trigger
trigger: siem_poll
conditions: []
actions: []
`,
			category: "trigger",
			key:      "siem_poll",
			known:    "broken_feed, event",
		},
		{
			name: "condition",
			document: `
name: Unknown condition
trigger: event
conditions:
  - type: matches_regex
    field: email.subject
actions: []
`,
			category: "condition",
			key:      "matches_regex",
			known:    "contains, equals, greater_than",
		},
		{
			name: "action",
			document: `
name: Unknown action
trigger: event
conditions: []
actions:
  - type: first
  - type: quarantine_host
  - type: second
`,
			category: "action",
			key:      "quarantine_host",
			known:    "create_ticket, explode, first, second, vanish",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			record, err := f.runner.Run(context.Background(), f.playbook(t, tt.name, tt.document))
			require.Error(t, err)
			assert.True(t, models.IsConfigurationError(err))

			require.NotNil(t, record)
			assert.Equal(t, models.RunStatusFailed, record.Status)
			require.NotNil(t, record.FinishedAt)

			errs := messages(f.logs(t, record.ID), models.LogLevelError)
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], fmt.Sprintf("%s '%s' not found", tt.category, tt.key))
			assert.Contains(t, errs[0], tt.known)

			assert.NotContains(t, f.recorder.Calls(), "second")
		})
	}
}

func TestRunner_ActionFailureAbortsRemainingEvents(t *testing.T) {
	f := newFixture(t)

	path := f.playbook(t, "explode", `
name: Explode
trigger:
  type: event
  events: [{id: 1}, {id: 2}]
conditions: []
actions:
  - type: first
  - type: explode
  - type: second
`)

	record, err := f.runner.Run(context.Background(), path)
	require.Error(t, err)
	assert.True(t, models.IsExecutionError(err))
	assert.Equal(t, models.RunStatusFailed, record.Status)

	assert.Equal(t, []string{"first", "explode"}, f.recorder.Calls())

	errs := messages(f.logs(t, record.ID), models.LogLevelError)
	require.Len(t, errs, 1)
	assert.Equal(t, "action 'explode' failed: mail relay refused", errs[0])
}

func TestRunner_TriggerFailureAndNilContext(t *testing.T) {
	f := newFixture(t)

	record, err := f.runner.Run(context.Background(), f.playbook(t, "feed", `
name: Feed
trigger: broken_feed
conditions: []
actions: []
`))
	require.Error(t, err)
	assert.True(t, models.IsExecutionError(err))
	assert.Equal(t, models.RunStatusFailed, record.Status)
	assert.Contains(t, err.Error(), "feed unavailable")

	record, err = f.runner.Run(context.Background(), f.playbook(t, "vanish", `
name: Vanish
trigger: event
conditions: []
actions:
  - type: vanish
  - type: second
`))
	require.ErrorIs(t, err, errNilContext)
	assert.Equal(t, models.RunStatusFailed, record.Status)
	assert.Equal(t, []string{"vanish"}, f.recorder.Calls())
}

func TestRunner_ValidationFailureCreatesNoRun(t *testing.T) {
	f := newFixture(t)

	record, err := f.runner.Run(context.Background(), f.playbook(t, "broken", "name: Broken\ntrigger: event\n"))
	require.Error(t, err)
	assert.True(t, models.IsValidationError(err))
	assert.Nil(t, record)

	runs, err := f.tracker.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

type gate map[string]bool

func (g gate) IsEnabled(triggerType string) bool {
	enabled, ok := g[triggerType]

	return !ok || enabled
}

func TestRunner_DisabledTrigger(t *testing.T) {
	f := newFixture(t, WithTriggerGate(gate{"event": false}))

	_, err := f.runner.Start(context.Background(), f.playbook(t, "severity", severityPlaybook))
	require.ErrorIs(t, err, ErrTriggerDisabled)

	runs, err := f.tracker.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunner_ConcurrentRunsKeepSeparateLogs(t *testing.T) {
	f := newFixture(t)
	path := f.playbook(t, "severity", severityPlaybook)

	const runs = 8

	ids := make([]string, runs)

	var mu sync.Mutex

	var wg sync.WaitGroup

	for i := range runs {
		wg.Add(1)

		go func() {
			defer wg.Done()

			id, err := f.runner.Start(context.Background(), path)
			if assert.NoError(t, err) {
				mu.Lock()
				ids[i] = id
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	f.runner.Wait()

	reference := f.logs(t, ids[0])
	require.NotEmpty(t, reference)

	for _, id := range ids {
		run, err := f.tracker.GetRun(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.RunStatusSuccess, run.Status)

		logs := f.logs(t, id)
		require.Len(t, logs, len(reference))

		for i, entry := range logs {
			assert.Equal(t, id, entry.RunID)
			assert.Equal(t, reference[i].Message, entry.Message)
		}
	}
}

func TestRunner_PanicFailsTheRun(t *testing.T) {
	f := newFixture(t)

	record, err := f.runner.Run(context.Background(), f.playbook(t, "crash", `
name: Crash
trigger:
  type: event
  events: [{id: 1}, {id: 2}]
conditions: []
actions:
  - type: first
  - type: crash
  - type: second
`))
	require.Error(t, err)
	assert.True(t, models.IsExecutionError(err))
	assert.Equal(t, models.RunStatusFailed, record.Status)
	assert.Equal(t, []string{"first", "crash"}, f.recorder.Calls())

	errs := messages(f.logs(t, record.ID), models.LogLevelError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "action 'crash' failed: panic:")

	runID, err := f.runner.Start(context.Background(), f.playbook(t, "corrupt", `
name: Corrupt
trigger: corrupt_feed
conditions: []
actions: []
`))
	require.NoError(t, err)

	f.runner.Wait()

	record, err = f.tracker.GetRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, record.Status)
	require.NotNil(t, record.FinishedAt)

	errs = messages(f.logs(t, runID), models.LogLevelError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "panic: feed cursor corrupted")
}

func TestRunner_CancelledRunKeepsItsError(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())

	runID, err := f.runner.Start(ctx, f.playbook(t, "stalled", `
name: Stalled
trigger: stalled_feed
conditions: []
actions: []
`))
	require.NoError(t, err)

	cancel()
	f.runner.Wait()

	record, err := f.tracker.GetRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, record.Status)

	errs := messages(f.logs(t, runID), models.LogLevelError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "context canceled")
}
