// Package events defines the run lifecycle notifications exchanged over the event bus.
package events

import (
	"time"

	"github.com/dukex/soarflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

const Topic = "soarflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent     EventType = "run.started"
	RunFinishedEvent    EventType = "run.finished"
	TriggerToggledEvent EventType = "trigger.toggled"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func newBase(eventType EventType, at time.Time) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: at.UTC(),
	}
}

type RunStarted struct {
	BaseEvent

	RunID       string `json:"run_id"`
	Playbook    string `json:"playbook"`
	TriggerType string `json:"trigger"`
}

func NewRunStarted(runID, playbook, triggerType string, startedAt time.Time) RunStarted {
	return RunStarted{
		BaseEvent:   newBase(RunStartedEvent, startedAt),
		RunID:       runID,
		Playbook:    playbook,
		TriggerType: triggerType,
	}
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

type RunFinished struct {
	BaseEvent

	RunID       string           `json:"run_id"`
	Playbook    string           `json:"playbook"`
	TriggerType string           `json:"trigger"`
	Status      models.RunStatus `json:"status"`
	Error       string           `json:"error,omitempty"`
	// Duration in seconds.
	Duration float64 `json:"duration"`
}

func NewRunFinished(record *models.RunRecord, runErr error) RunFinished {
	finishedAt := time.Now()
	if record.FinishedAt != nil {
		finishedAt = *record.FinishedAt
	}

	event := RunFinished{
		BaseEvent:   newBase(RunFinishedEvent, finishedAt),
		RunID:       record.ID,
		Playbook:    record.Playbook,
		TriggerType: record.TriggerType,
		Status:      record.Status,
		Duration:    record.Duration,
	}

	if runErr != nil {
		event.Error = runErr.Error()
	}

	return event
}

func (e RunFinished) GetType() EventType {
	return RunFinishedEvent
}

// TriggerToggled is emitted when a trigger type is enabled or disabled.
type TriggerToggled struct {
	BaseEvent

	Trigger string `json:"trigger"`
	Active  bool   `json:"active"`
}

func NewTriggerToggled(trigger string, active bool) TriggerToggled {
	return TriggerToggled{
		BaseEvent: newBase(TriggerToggledEvent, time.Now()),
		Trigger:   trigger,
		Active:    active,
	}
}

func (e TriggerToggled) GetType() EventType {
	return TriggerToggledEvent
}
