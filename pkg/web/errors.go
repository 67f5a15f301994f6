package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/askdb/askdb/pkg/processor"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func forbidden(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(403).
		WithInstance(c.Path()).
		WithType("authorization_error").
		WithDetail(detail)

	return c.Status(fiber.StatusForbidden).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleProcessorError maps task registry errors onto problem responses.
func handleProcessorError(c fiber.Ctx, err error) error {
	switch {
	case processor.IsValidationError(err):
		return badRequest(c, err.Error())
	case processor.IsAuthorizationError(err):
		return forbidden(c, err.Error())
	case processor.IsNotFoundError(err):
		return notFound(c, "task not found")
	default:
		return internalError(c, err)
	}
}
