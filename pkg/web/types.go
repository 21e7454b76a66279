// Package web provides HTTP request and response types for the workflow API.
package web

import (
	"time"

	"github.com/dukex/taskflow/pkg/models"
)

// ExecuteWorkflowRequest is the body of a manual execution. Input is passed
// to the workflow unchanged.
type ExecuteWorkflowRequest struct {
	Input       any    `json:"input"`
	TriggeredBy string `json:"triggered_by" validate:"omitempty,max=64"`
}

type ExecuteWorkflowResponse struct {
	ExecutionID string         `json:"execution_id"`
	Output      map[string]any `json:"output"`
}

// CreateWebhookTriggerRequest registers a trigger for the workflow in the path.
type CreateWebhookTriggerRequest struct {
	WorkspaceID string         `json:"workspace_id" validate:"required"`
	Name        string         `json:"name"         validate:"required,min=1,max=255"`
	CreatedBy   string         `json:"created_by"`
	JSONSchema  map[string]any `json:"json_schema"`
}

type UpdateWebhookTriggerRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// WebhookTriggerResponse exposes a trigger with its absolute URL.
// The secret is only included when the trigger is created.
type WebhookTriggerResponse struct {
	ID            string         `json:"id"`
	WorkspaceID   string         `json:"workspace_id"`
	WorkflowID    string         `json:"workflow_id"`
	Name          string         `json:"name"`
	URL           string         `json:"url"`
	Secret        string         `json:"secret,omitempty"`
	Active        bool           `json:"active"`
	JSONSchema    map[string]any `json:"json_schema,omitempty"`
	LastTriggered *time.Time     `json:"last_triggered,omitempty"`
	TriggerCount  int64          `json:"trigger_count"`
	CreatedBy     string         `json:"created_by,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

func TransformWebhookTrigger(trigger *models.WebhookTrigger, url string, includeSecret bool) WebhookTriggerResponse {
	response := WebhookTriggerResponse{
		ID:            trigger.ID,
		WorkspaceID:   trigger.WorkspaceID,
		WorkflowID:    trigger.WorkflowID,
		Name:          trigger.Name,
		URL:           url,
		Active:        trigger.Active,
		JSONSchema:    trigger.JSONSchema,
		LastTriggered: trigger.LastTriggered,
		TriggerCount:  trigger.TriggerCount,
		CreatedBy:     trigger.CreatedBy,
		CreatedAt:     trigger.CreatedAt,
	}

	if includeSecret {
		response.Secret = trigger.Secret
	}

	return response
}
