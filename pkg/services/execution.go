package services

import (
	"context"
	"fmt"

	"github.com/dukex/taskflow/pkg/engine"
	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
)

// Execution exposes execution records and the controller's run/cancel operations.
type Execution struct {
	persistence persistence.Persistence
	controller  *engine.Controller
}

func NewExecution(persistence persistence.Persistence, controller *engine.Controller) *Execution {
	return &Execution{
		persistence: persistence,
		controller:  controller,
	}
}

func (e *Execution) Execute(ctx context.Context, workflowID string, input any, triggeredBy string) (*engine.Result, error) {
	return e.controller.Execute(ctx, workflowID, input, triggeredBy)
}

func (e *Execution) Get(ctx context.Context, executionID string) (*models.Execution, error) {
	return e.persistence.ExecutionRepository().GetByID(ctx, executionID)
}

// ListByWorkflow returns a workflow's executions, most recent first.
func (e *Execution) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	if _, err := e.persistence.WorkflowRepository().GetByID(ctx, workflowID); err != nil {
		return nil, err
	}

	executions, err := e.persistence.ExecutionRepository().ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

func (e *Execution) Cancel(ctx context.Context, executionID string) (*models.Execution, error) {
	return e.controller.Cancel(ctx, executionID)
}
