package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dukex/soarflow/pkg/log"
	"github.com/urfave/cli/v3"
)

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Execute a playbook once and wait for it to finish",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "playbook",
				Aliases:  []string{"p"},
				Usage:    "Playbook file path, or a name in the playbooks directory",
				Required: true,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("run")

			rt, err := newRuntime(ctx, command, logger)
			if err != nil {
				return err
			}

			defer func() {
				err := rt.Close(context.WithoutCancel(ctx))
				if err != nil {
					logger.ErrorContext(ctx, "Failed to shut down", "error", err)
				}
			}()

			path, err := rt.resolvePlaybook(command.String("playbook"))
			if err != nil {
				return err
			}

			record, runErr := rt.runner.Run(ctx, path)
			if record == nil {
				return runErr
			}

			_, err = fmt.Fprintf(command.Root().Writer, "run %s %s (%s) in %.3fs\n",
				record.ID, record.Status, record.Playbook, record.Duration)
			if err != nil {
				return err
			}

			return runErr
		},
	}
}

// resolvePlaybook accepts an existing file path first, then a stored name.
func (rt *runtime) resolvePlaybook(ref string) (string, error) {
	info, err := os.Stat(ref)
	if err == nil && !info.IsDir() {
		return ref, nil
	}

	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to stat playbook %s: %w", ref, err)
	}

	return rt.playbooks.Path(ref)
}
