// Package postgresql provides PostgreSQL persistence for playbook runs.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/soarflow/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

const (
	maxOpenConns    = 10
	connMaxIdleTime = 5 * time.Minute
)

// Persistence keeps runs in execution_runs and their entries in
// execution_logs. Log order is the insertion order of the serial id.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence connects to databaseURL and brings the schema up to date.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	db, err := open(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	err = sqlbase.Migrate(ctx, logger, db, schema)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return &Persistence{db: db, logger: logger}, nil
}

func open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL URL: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("PostgreSQL is unreachable: %w", err)
	}

	return db, nil
}

func (p *Persistence) Close(_ context.Context) error {
	return p.db.Close()
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
