package web

import (
	"github.com/dukex/taskflow/pkg/webhook"
	"github.com/gofiber/fiber/v3"
)

func (h *APIHandlers) CreateWebhookTrigger(c fiber.Ctx) error {
	var req CreateWebhookTriggerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	trigger, err := h.gateway.CreateTrigger(c.Context(), webhook.CreateTriggerRequest{
		WorkspaceID: req.WorkspaceID,
		WorkflowID:  c.Params("id"),
		Name:        req.Name,
		CreatedBy:   req.CreatedBy,
		JSONSchema:  req.JSONSchema,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(TransformWebhookTrigger(trigger, h.gateway.TriggerURL(trigger), true))
}

func (h *APIHandlers) GetWebhookTriggers(c fiber.Ctx) error {
	workspaceID := c.Query("workspace_id")
	if workspaceID == "" {
		return badRequest(c, "workspace_id is required")
	}

	triggers, err := h.gateway.ListTriggers(c.Context(), workspaceID)
	if err != nil {
		return handleServiceError(c, err)
	}

	response := make([]WebhookTriggerResponse, 0, len(triggers))
	for _, trigger := range triggers {
		response = append(response, TransformWebhookTrigger(trigger, h.gateway.TriggerURL(trigger), false))
	}

	return c.JSON(response)
}

func (h *APIHandlers) UpdateWebhookTrigger(c fiber.Ctx) error {
	var req UpdateWebhookTriggerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	trigger, err := h.gateway.SetActive(c.Context(), c.Params("id"), *req.Active)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformWebhookTrigger(trigger, h.gateway.TriggerURL(trigger), false))
}

func (h *APIHandlers) DeleteWebhookTrigger(c fiber.Ctx) error {
	if err := h.gateway.DeleteTrigger(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// TriggerWebhook runs the trigger's workflow with the request body as input.
func (h *APIHandlers) TriggerWebhook(c fiber.Ctx) error {
	result, err := h.gateway.HandleInbound(c.Context(), c.Params("urlSuffix"), c.Body(), c.Query("signature"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ExecuteWorkflowResponse{
		ExecutionID: result.ExecutionID,
		Output:      result.Output,
	})
}
