package main

import (
	"context"
	"fmt"

	"github.com/dukex/soarflow/pkg/cmd"
	"github.com/dukex/soarflow/pkg/log"
	"github.com/urfave/cli/v3"
)

func ComponentsCommand() *cli.Command {
	return &cli.Command{
		Name:    "components",
		Aliases: []string{"c"},
		Usage:   "List the registered triggers, conditions and actions",
		Action: func(_ context.Context, command *cli.Command) error {
			reg, err := cmd.NewRegistry(log.WithModule("registry"), command.String("plugins-path"))
			if err != nil {
				return err
			}

			w := command.Root().Writer

			for _, component := range reg.Components() {
				_, err := fmt.Fprintf(w, "%-9s  %-14s  %s\n", component.Category, component.Type, component.Description)
				if err != nil {
					return err
				}
			}

			return nil
		},
	}
}
