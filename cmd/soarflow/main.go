// Package main provides the soarflow command line: run playbooks once, serve
// the HTTP API and inspect stored runs.
package main

import (
	"context"
	"os"

	"github.com/dukex/soarflow/pkg/log"
	"github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	err := NewCommand().Run(context.Background(), os.Args)
	if err != nil {
		log.WithModule("soarflow").Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func NewCommand() *cli.Command {
	return &cli.Command{
		Name:                  "soarflow",
		Usage:                 "Run and observe security playbooks",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Run store URL (a directory, file:// or postgres://)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "playbooks-dir",
				Usage:   "Directory holding playbook documents",
				Value:   "./configs/playbooks",
				Sources: cli.EnvVars("PLAYBOOKS_DIR"),
			},
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Path to the directory containing component plugins",
				Value:   "./plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			RunCommand(),
			ServeCommand(),
			RunsCommand(),
			ComponentsCommand(),
		},
	}
}
