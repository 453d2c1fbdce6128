package main

import (
	"github.com/dukex/soarflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// App builds the fiber application serving the API.
func (rt *runtime) App() *fiber.App {
	handlers := web.NewAPIHandlers(web.Dependencies{
		Runner:      rt.runner,
		Tracker:     rt.tracker,
		Broadcaster: rt.broadcaster,
		Playbooks:   rt.playbooks,
		Triggers:    rt.catalog,
		Registry:    rt.registry,
		Persistence: rt.persistence,
		Logger:      rt.logger,
	}, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("soarflow API")
	})

	handlers.Register(app)

	return app
}
