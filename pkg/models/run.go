package models

import "time"

// RunStatus represents the lifecycle state of a playbook run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// IsTerminal reports whether the status is a final one.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSuccess || s == RunStatusFailed
}

// LogLevel is the severity of a run log entry.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelDebug LogLevel = "debug"
	LogLevelError LogLevel = "error"
)

// RunRecord tracks the lifecycle of one playbook run.
type RunRecord struct {
	ID          string     `json:"id"`
	Playbook    string     `json:"playbook"`
	TriggerType string     `json:"trigger"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	// Duration in seconds, set when the run finishes.
	Duration float64 `json:"duration"`
}

// LogEntry is one append-only log line of a run.
type LogEntry struct {
	RunID     string    `json:"run_id"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// RunEventType distinguishes live log deliveries from the completion marker.
type RunEventType string

const (
	RunEventLog      RunEventType = "log"
	RunEventComplete RunEventType = "complete"
)

// RunEvent is what live observers of a run receive.
type RunEvent struct {
	Event      RunEventType `json:"event"`
	RunID      string       `json:"run_id"`
	Level      LogLevel     `json:"level,omitempty"`
	Message    string       `json:"message,omitempty"`
	Timestamp  *time.Time   `json:"timestamp,omitempty"`
	Status     RunStatus    `json:"status,omitempty"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

// LogEvent builds the live event for a persisted log entry.
func LogEvent(entry LogEntry) RunEvent {
	ts := entry.CreatedAt

	return RunEvent{
		Event:     RunEventLog,
		RunID:     entry.RunID,
		Level:     entry.Level,
		Message:   entry.Message,
		Timestamp: &ts,
	}
}

// CompleteEvent builds the synthetic completion event of a run.
func CompleteEvent(runID string, status RunStatus, finishedAt time.Time) RunEvent {
	return RunEvent{
		Event:      RunEventComplete,
		RunID:      runID,
		Status:     status,
		FinishedAt: &finishedAt,
	}
}
