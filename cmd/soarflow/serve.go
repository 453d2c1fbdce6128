package main

import (
	"context"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/dukex/soarflow/pkg/log"
	"github.com/gofiber/fiber/v3"
	"github.com/urfave/cli/v3"
)

func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the HTTP API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing soarflow API")

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

			err = rt.catalog.Subscribe(rt.eventBus)
			if err != nil {
				return err
			}

			err = rt.eventBus.Subscribe(ctx)
			if err != nil {
				return err
			}

			app := rt.App()

			go func() {
				<-ctx.Done()

				logger.Info("Shutting down API")

				err := app.Shutdown()
				if err != nil {
					logger.Error("Failed to shut down API", "error", err)
				}
			}()

			return app.Listen(":"+strconv.Itoa(command.Int("port")), fiber.ListenConfig{
				DisableStartupMessage: true,
			})
		},
	}
}
