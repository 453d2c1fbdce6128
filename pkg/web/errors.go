package web

import (
	"errors"

	"github.com/dukex/soarflow/pkg/engine"
	"github.com/dukex/soarflow/pkg/models"
	"github.com/dukex/soarflow/pkg/persistence"
	"github.com/dukex/soarflow/pkg/playbook"
	"github.com/dukex/soarflow/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, kind, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleError maps domain errors onto problem responses.
func handleError(c fiber.Ctx, err error) error {
	switch {
	case models.IsValidationError(err),
		errors.Is(err, playbook.ErrInvalidName),
		services.IsValidationError(err):
		return badRequest(c, err.Error())

	case errors.Is(err, playbook.ErrPlaybookNotFound):
		return notFound(c, "playbook_not_found", "Playbook not found")

	case persistence.IsRunNotFound(err):
		return notFound(c, "run_not_found", "Run not found")

	case services.IsNotFoundError(err):
		return notFound(c, "trigger_not_found", err.Error())

	case errors.Is(err, engine.ErrTriggerDisabled):
		return conflict(c, err.Error())

	default:
		return internalError(c, err)
	}
}
