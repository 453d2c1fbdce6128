package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/soarflow/pkg/models"
	"github.com/dukex/soarflow/pkg/persistence"
	"github.com/lib/pq"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

func (p *Persistence) CreateRun(ctx context.Context, run *models.RunRecord) error {
	query := `
		INSERT INTO execution_runs (id, playbook, trigger, status, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := p.db.ExecContext(ctx, query, run.ID, run.Playbook, nullable(run.TriggerType), string(run.Status), run.StartedAt)
	if err != nil {
		if isPQError(err, uniqueViolation) {
			return persistence.NewRunError("CreateRun", run.ID, persistence.ErrRunAlreadyExists)
		}

		p.logger.ErrorContext(ctx, "Failed to create run", "run_id", run.ID, "error", err)

		return persistence.NewRunError("CreateRun", run.ID, err)
	}

	return nil
}

func (p *Persistence) FinishRun(ctx context.Context, runID string, status models.RunStatus, finishedAt time.Time, duration float64) error {
	query := `UPDATE execution_runs SET status = $1, finished_at = $2, duration = $3 WHERE id = $4`

	result, err := p.db.ExecContext(ctx, query, string(status), finishedAt, duration, runID)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to finish run", "run_id", runID, "error", err)

		return persistence.NewRunError("FinishRun", runID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRunError("FinishRun", runID, err)
	}

	if rows == 0 {
		return persistence.NewRunError("FinishRun", runID, persistence.ErrRunNotFound)
	}

	return nil
}

func (p *Persistence) AddLog(ctx context.Context, entry models.LogEntry) error {
	query := `
		INSERT INTO execution_logs (run_id, level, message, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := p.db.ExecContext(ctx, query, entry.RunID, string(entry.Level), entry.Message, entry.CreatedAt)
	if err != nil {
		if isPQError(err, foreignKeyViolation) {
			return persistence.NewRunError("AddLog", entry.RunID, persistence.ErrRunNotFound)
		}

		return persistence.NewRunError("AddLog", entry.RunID, err)
	}

	return nil
}

func (p *Persistence) FetchRuns(ctx context.Context, limit int) ([]*models.RunRecord, error) {
	if limit <= 0 {
		limit = persistence.DefaultRunLimit
	}

	query := `
		SELECT id, playbook, trigger, status, started_at, finished_at, duration
		FROM execution_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*models.RunRecord, 0)

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		runs = append(runs, run)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

func (p *Persistence) FetchRun(ctx context.Context, runID string) (*models.RunRecord, error) {
	query := `
		SELECT id, playbook, trigger, status, started_at, finished_at, duration
		FROM execution_runs
		WHERE id = $1
	`

	run, err := scanRun(p.db.QueryRowContext(ctx, query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewRunError("FetchRun", runID, persistence.ErrRunNotFound)
	}

	if err != nil {
		return nil, persistence.NewRunError("FetchRun", runID, err)
	}

	return run, nil
}

func (p *Persistence) FetchLogs(ctx context.Context, runID string) ([]models.LogEntry, error) {
	query := `
		SELECT run_id, level, message, created_at
		FROM execution_logs
		WHERE run_id = $1
		ORDER BY id ASC
	`

	rows, err := p.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, persistence.NewRunError("FetchLogs", runID, err)
	}
	defer rows.Close()

	entries := make([]models.LogEntry, 0)

	for rows.Next() {
		var (
			entry models.LogEntry
			level string
		)

		err := rows.Scan(&entry.RunID, &level, &entry.Message, &entry.CreatedAt)
		if err != nil {
			return nil, persistence.NewRunError("FetchLogs", runID, err)
		}

		entry.Level = models.LogLevel(level)
		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, persistence.NewRunError("FetchLogs", runID, err)
	}

	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.RunRecord, error) {
	var (
		run        models.RunRecord
		trigger    sql.NullString
		status     string
		finishedAt sql.NullTime
		duration   sql.NullFloat64
	)

	err := row.Scan(&run.ID, &run.Playbook, &trigger, &status, &run.StartedAt, &finishedAt, &duration)
	if err != nil {
		return nil, err
	}

	run.TriggerType = trigger.String
	run.Status = models.RunStatus(status)
	run.Duration = duration.Float64

	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}

	return &run, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isPQError(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && pqErr.Code == code
}
