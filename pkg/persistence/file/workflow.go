package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
)

// WorkflowRepository handles workflow-related file operations.
// Steps are embedded in the workflow document, so saving replaces them in full.
type WorkflowRepository struct {
	collection collection
	executions *ExecutionRepository
}

// List returns the workflows of a workspace sorted by creation time.
func (wr *WorkflowRepository) List(_ context.Context, workspaceID string) ([]*models.Workflow, error) {
	wr.collection.mu.RLock()
	defer wr.collection.mu.RUnlock()

	workflows, err := scan(wr.collection, func(w *models.Workflow) bool {
		return workspaceID == "" || w.WorkspaceID == workspaceID
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// GetByID retrieves a workflow by its ID from the file system.
func (wr *WorkflowRepository) GetByID(_ context.Context, workflowID string) (*models.Workflow, error) {
	wr.collection.mu.RLock()
	defer wr.collection.mu.RUnlock()

	var workflow models.Workflow

	found, err := wr.collection.read(workflowID, &workflow)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", workflowID, err)
	}

	if !found {
		return nil, persistence.NewWorkflowError("GetByID", workflowID, persistence.ErrWorkflowNotFound)
	}

	return &workflow, nil
}

// Save saves a workflow to the file system.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	wr.collection.mu.Lock()
	defer wr.collection.mu.Unlock()

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	for _, step := range workflow.Steps {
		step.WorkflowID = workflow.ID
	}

	if err := wr.collection.write(workflow.ID, workflow); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// Delete removes a workflow and every execution recorded for it.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	wr.collection.mu.Lock()
	defer wr.collection.mu.Unlock()

	found, err := wr.collection.remove(id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if !found {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	if err := wr.executions.deleteByWorkflow(id); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}
