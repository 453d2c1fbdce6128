package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dukex/soarflow/pkg/cmd"
	"github.com/dukex/soarflow/pkg/log"
	"github.com/dukex/soarflow/pkg/models"
	"github.com/dukex/soarflow/pkg/persistence"
	"github.com/urfave/cli/v3"
)

func RunsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Inspect recorded playbook runs",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List the most recent runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: persistence.DefaultRunLimit,
					},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					return withPersistence(ctx, command, func(store persistence.Persistence) error {
						runs, err := store.FetchRuns(ctx, command.Int("limit"))
						if err != nil {
							return fmt.Errorf("failed to fetch runs: %w", err)
						}

						return printRuns(command.Root().Writer, runs)
					})
				},
			},
			{
				Name:      "show",
				Usage:     "Show one run and its log",
				ArgsUsage: "<run-id>",
				Action: func(ctx context.Context, command *cli.Command) error {
					runID := command.Args().First()
					if runID == "" {
						return fmt.Errorf("run id is required")
					}

					return withPersistence(ctx, command, func(store persistence.Persistence) error {
						run, err := store.FetchRun(ctx, runID)
						if err != nil {
							return err
						}

						logs, err := store.FetchLogs(ctx, runID)
						if err != nil {
							return err
						}

						return printRun(command.Root().Writer, run, logs)
					})
				},
			},
		},
	}
}

func withPersistence(ctx context.Context, command *cli.Command, fn func(persistence.Persistence) error) error {
	logger := log.WithModule("runs")

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		err := store.Close(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	return fn(store)
}

func printRuns(w io.Writer, runs []*models.RunRecord) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded")

		return err
	}

	for _, run := range runs {
		_, err := fmt.Fprintf(w, "%s  %-9s  %-20s  %-10s  %s\n",
			run.ID, run.Status, run.Playbook, run.TriggerType, run.StartedAt.Format(time.RFC3339))
		if err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "\nTotal runs: %d\n", len(runs))

	return err
}

func printRun(w io.Writer, run *models.RunRecord, logs []models.LogEntry) error {
	finished := "-"
	if run.FinishedAt != nil {
		finished = run.FinishedAt.Format(time.RFC3339)
	}

	_, err := fmt.Fprintf(w, "Run: %s\nPlaybook: %s\nTrigger: %s\nStatus: %s\nStarted: %s\nFinished: %s\nDuration: %.3fs\n\n",
		run.ID, run.Playbook, run.TriggerType, run.Status,
		run.StartedAt.Format(time.RFC3339), finished, run.Duration)
	if err != nil {
		return err
	}

	for _, entry := range logs {
		_, err := fmt.Fprintf(w, "%s [%s] %s\n", entry.CreatedAt.Format(time.RFC3339), entry.Level, entry.Message)
		if err != nil {
			return err
		}
	}

	return nil
}
