package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
)

type Workflow struct {
	persistence persistence.Persistence
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, logger *slog.Logger) *Workflow {
	return &Workflow{
		persistence: persistence,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.With("module", "workflow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateWorkflowRequest holds everything needed to define a workflow.
type CreateWorkflowRequest struct {
	WorkspaceID string                   `json:"workspace_id" yaml:"workspace_id" validate:"required"`
	Name        string                   `json:"name"         yaml:"name"         validate:"required,min=1,max=255"`
	Description string                   `json:"description"  yaml:"description"`
	Icon        string                   `json:"icon"         yaml:"icon"`
	Color       string                   `json:"color"        yaml:"color"`
	Trigger     models.TriggerDescriptor `json:"trigger"      yaml:"trigger"`
	Active      *bool                    `json:"active"       yaml:"active"`
	Steps       []*models.Step           `json:"steps"        yaml:"steps"        validate:"dive"`
	CreatedBy   string                   `json:"created_by"   yaml:"created_by"`
}

// UpdateWorkflowRequest patches workflow metadata. A non-nil Steps replaces the whole step set.
type UpdateWorkflowRequest struct {
	Name        *string                   `json:"name"        validate:"omitempty,min=1,max=255"`
	Description *string                   `json:"description"`
	Icon        *string                   `json:"icon"`
	Color       *string                   `json:"color"`
	Trigger     *models.TriggerDescriptor `json:"trigger"`
	Active      *bool                     `json:"active"`
	Steps       []*models.Step            `json:"steps"       validate:"omitempty,dive"`
}

// Validate runs the same checks as Create without storing anything.
func (w *Workflow) Validate(req *CreateWorkflowRequest) error {
	if req.Trigger.Type == "" {
		req.Trigger.Type = models.TriggerTypeManual
	}

	if err := w.validate.Struct(req); err != nil {
		return NewValidationError("Validate", "INVALID_REQUEST", validationMessage(err), ErrInvalidRequest)
	}

	if err := ValidateTrigger(req.Trigger); err != nil {
		return err
	}

	return ValidateSteps(req.Steps)
}

// Create adds a new workflow at version 1. Workflows are active unless stated otherwise.
func (w *Workflow) Create(ctx context.Context, req CreateWorkflowRequest) (*models.Workflow, error) {
	if err := w.Validate(&req); err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := time.Now().UTC()
	workflow := &models.Workflow{
		ID:          uuid.New().String(),
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		Color:       req.Color,
		Trigger:     req.Trigger,
		Active:      active,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if req.Steps == nil {
		req.Steps = make([]*models.Step, 0)
	}

	workflow.ReplaceSteps(req.Steps)

	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow created", "workflow_id", workflow.ID, "workspace_id", workflow.WorkspaceID, "steps", len(workflow.Steps))

	return workflow, nil
}

// Update applies the request to an existing workflow.
// Steps are never patched: a new step set replaces the old one and bumps the version.
func (w *Workflow) Update(ctx context.Context, workflowID string, req UpdateWorkflowRequest) (*models.Workflow, error) {
	if err := w.validate.Struct(req); err != nil {
		return nil, NewValidationError("Update", "INVALID_REQUEST", validationMessage(err), ErrInvalidRequest)
	}

	workflow, err := w.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		workflow.Name = *req.Name
	}

	if req.Description != nil {
		workflow.Description = *req.Description
	}

	if req.Icon != nil {
		workflow.Icon = *req.Icon
	}

	if req.Color != nil {
		workflow.Color = *req.Color
	}

	if req.Active != nil {
		workflow.Active = *req.Active
	}

	if req.Trigger != nil {
		if err := ValidateTrigger(*req.Trigger); err != nil {
			return nil, err
		}

		workflow.Trigger = *req.Trigger
	}

	if req.Steps != nil {
		if err := ValidateSteps(req.Steps); err != nil {
			return nil, err
		}

		workflow.ReplaceSteps(req.Steps)
	}

	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow updated", "workflow_id", workflow.ID, "version", workflow.Version)

	return workflow, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	return workflow, nil
}

// List returns the workflows of a workspace.
func (w *Workflow) List(ctx context.Context, workspaceID string) ([]*models.Workflow, error) {
	workflows, err := w.persistence.WorkflowRepository().List(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// ListByTriggerEvent returns the active workflows started by the named event.
func (w *Workflow) ListByTriggerEvent(ctx context.Context, event string) ([]*models.Workflow, error) {
	workflows, err := w.List(ctx, "")
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Workflow, 0)

	for _, workflow := range workflows {
		if workflow.Active && workflow.Trigger.Type == models.TriggerTypeEvent && workflow.Trigger.Event == event {
			matched = append(matched, workflow)
		}
	}

	return matched, nil
}

// Delete removes a workflow, its steps and its executions.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	err := w.persistence.WorkflowRepository().Delete(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow deleted", "workflow_id", workflowID)

	return nil
}
