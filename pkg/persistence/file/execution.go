package file

import (
	"context"
	"fmt"
	"sort"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
)

// ExecutionRepository handles execution-related file operations.
type ExecutionRepository struct {
	collection collection
}

func (er *ExecutionRepository) Save(_ context.Context, execution *models.Execution) error {
	er.collection.mu.Lock()
	defer er.collection.mu.Unlock()

	if err := er.collection.write(execution.ID, execution); err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	return nil
}

func (er *ExecutionRepository) FinishRunning(_ context.Context, execution *models.Execution) error {
	er.collection.mu.Lock()
	defer er.collection.mu.Unlock()

	var stored models.Execution

	found, err := er.collection.read(execution.ID, &stored)
	if err != nil {
		return persistence.NewExecutionError("FinishRunning", execution.ID, err)
	}

	if !found {
		return persistence.NewExecutionError("FinishRunning", execution.ID, persistence.ErrExecutionNotFound)
	}

	if stored.Status != models.ExecutionStatusRunning {
		return persistence.NewExecutionError("FinishRunning", execution.ID, persistence.ErrExecutionNotRunning)
	}

	if err := er.collection.write(execution.ID, execution); err != nil {
		return persistence.NewExecutionError("FinishRunning", execution.ID, err)
	}

	return nil
}

func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.Execution, error) {
	er.collection.mu.RLock()
	defer er.collection.mu.RUnlock()

	var execution models.Execution

	found, err := er.collection.read(id, &execution)
	if err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	return &execution, nil
}

// ListByWorkflow returns the executions of a workflow, most recent first.
func (er *ExecutionRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.Execution, error) {
	er.collection.mu.RLock()
	defer er.collection.mu.RUnlock()

	executions, err := scan(er.collection, func(e *models.Execution) bool {
		return e.WorkflowID == workflowID
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list executions of workflow %s: %w", workflowID, err)
	}

	sort.SliceStable(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}

// deleteByWorkflow is called with the persistence lock held.
func (er *ExecutionRepository) deleteByWorkflow(workflowID string) error {
	executions, err := scan(er.collection, func(e *models.Execution) bool {
		return e.WorkflowID == workflowID
	})
	if err != nil {
		return err
	}

	for _, execution := range executions {
		if _, err := er.collection.remove(execution.ID); err != nil {
			return err
		}
	}

	return nil
}
