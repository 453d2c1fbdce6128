// Package sqlbase holds the schema versioning shared by SQL run stores.
package sqlbase

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
)

// Migration is one forward-only schema step. Versions must be unique.
type Migration struct {
	Version    int
	Statements string
}

const versionsTable = `
	CREATE TABLE IF NOT EXISTS soarflow_schema_versions (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`

// Migrate applies, oldest first, every migration newer than the recorded
// schema version. Each step commits together with its version row.
func Migrate(ctx context.Context, logger *slog.Logger, db *sql.DB, migrations []Migration) error {
	_, err := db.ExecContext(ctx, versionsTable)
	if err != nil {
		return fmt.Errorf("failed to create schema versions table: %w", err)
	}

	var current int

	err = db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM soarflow_schema_versions").Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	pending := Pending(migrations, current)
	if len(pending) == 0 {
		logger.DebugContext(ctx, "Schema is up to date", "version", current)

		return nil
	}

	for _, m := range pending {
		err := apply(ctx, db, m)
		if err != nil {
			return err
		}

		logger.InfoContext(ctx, "Applied schema migration", "version", m.Version)
	}

	return nil
}

// Pending returns the migrations newer than version, sorted by version.
func Pending(migrations []Migration, version int) []Migration {
	pending := make([]Migration, 0, len(migrations))

	for _, m := range migrations {
		if m.Version > version {
			pending = append(pending, m)
		}
	}

	slices.SortFunc(pending, func(a, b Migration) int {
		return a.Version - b.Version
	})

	return pending
}

func apply(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: %w", m.Version, err)
	}

	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, m.Statements)
	if err != nil {
		return fmt.Errorf("migration %d failed: %w", m.Version, err)
	}

	_, err = tx.ExecContext(ctx, "INSERT INTO soarflow_schema_versions (version) VALUES ($1)", m.Version)
	if err != nil {
		return fmt.Errorf("migration %d could not be recorded: %w", m.Version, err)
	}

	return tx.Commit()
}
