// Package persistence provides the durable storage abstraction for playbook runs.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/soarflow/pkg/models"
)

// DefaultRunLimit bounds FetchRuns when the caller passes a non-positive limit.
const DefaultRunLimit = 100

type Persistence interface {
	// CreateRun stores a new run record. The run id must be unused.
	CreateRun(ctx context.Context, run *models.RunRecord) error
	// FinishRun sets the terminal status, finish time and duration of a run.
	FinishRun(ctx context.Context, runID string, status models.RunStatus, finishedAt time.Time, duration float64) error
	// AddLog appends one log entry to a run.
	AddLog(ctx context.Context, entry models.LogEntry) error

	// FetchRuns returns the most recently started runs first.
	FetchRuns(ctx context.Context, limit int) ([]*models.RunRecord, error)
	FetchRun(ctx context.Context, runID string) (*models.RunRecord, error)
	// FetchLogs returns the entries of a run in the order they were added.
	FetchLogs(ctx context.Context, runID string) ([]models.LogEntry, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
