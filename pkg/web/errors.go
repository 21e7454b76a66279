package web

import (
	"errors"

	"github.com/dukex/taskflow/pkg/engine"
	"github.com/dukex/taskflow/pkg/persistence"
	"github.com/dukex/taskflow/pkg/services"
	"github.com/dukex/taskflow/pkg/webhook"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func problem(c fiber.Ctx, status int, problemType, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(status).JSON(p)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func notFound(c fiber.Ctx, problemType, detail string) error {
	return problem(c, fiber.StatusNotFound, problemType, detail)
}

func internalError(c fiber.Ctx, err error) error {
	p := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(p)
}

// handleServiceError maps service, engine and gateway errors to problem documents.
func handleServiceError(c fiber.Ctx, err error) error {
	var stepErr *engine.StepError

	switch {
	case services.IsValidationError(err):
		return problem(c, fiber.StatusBadRequest, services.ValidationCode(err), err.Error())

	case errors.Is(err, webhook.ErrInvalidSignature):
		return problem(c, fiber.StatusUnauthorized, "invalid_signature", "invalid signature")

	case errors.Is(err, webhook.ErrTriggerNotFound):
		return notFound(c, "webhook_trigger_not_found", "webhook trigger not found")

	case errors.Is(err, webhook.ErrTriggerInactive):
		return notFound(c, "webhook_trigger_inactive", "webhook trigger is inactive")

	case errors.Is(err, webhook.ErrInvalidPayload),
		errors.Is(err, webhook.ErrPayloadSchema),
		errors.Is(err, webhook.ErrInvalidSchema):
		return badRequest(c, err.Error())

	case errors.Is(err, engine.ErrWorkflowUnavailable):
		return notFound(c, "workflow_unavailable", err.Error())

	case persistence.IsWorkflowNotFound(err):
		return notFound(c, "workflow_not_found", "workflow not found")

	case persistence.IsExecutionNotFound(err):
		return notFound(c, "execution_not_found", "execution not found")

	case persistence.IsWebhookTriggerNotFound(err):
		return notFound(c, "webhook_trigger_not_found", "webhook trigger not found")

	case errors.Is(err, engine.ErrExecutionTerminal):
		return problem(c, fiber.StatusConflict, "execution_terminal", err.Error())

	case errors.Is(err, engine.ErrExecutionCancelled):
		return problem(c, fiber.StatusConflict, "execution_cancelled", err.Error())

	case errors.As(err, &stepErr), engine.IsDefinitionError(err):
		// The execution record is already marked failed with the same message.
		return problem(c, fiber.StatusUnprocessableEntity, "execution_failed", err.Error())

	default:
		return internalError(c, err)
	}
}
