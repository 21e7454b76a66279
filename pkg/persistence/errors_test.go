package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukex/taskflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		workflowErr := persistence.NewWorkflowError("GetByID", "workflow-123", persistence.ErrWorkflowNotFound)
		executionErr := persistence.NewExecutionError("GetByID", "execution-456", persistence.ErrExecutionNotFound)

		assert.True(t, persistence.IsWorkflowNotFound(workflowErr))
		assert.True(t, persistence.IsExecutionNotFound(executionErr))
		assert.False(t, persistence.IsWorkflowNotFound(executionErr))

		assert.True(t, errors.Is(workflowErr, persistence.ErrWorkflowNotFound))
		assert.True(t, errors.Is(executionErr, persistence.ErrExecutionNotFound))
	})

	t.Run("workflow error contains context", func(t *testing.T) {
		err := persistence.NewWorkflowError("Delete", "workflow-123", persistence.ErrWorkflowNotFound)

		assert.Contains(t, err.Error(), "Delete")
		assert.Contains(t, err.Error(), "workflow-123")
		assert.Contains(t, err.Error(), "workflow not found")
	})

	t.Run("not found matches every entity", func(t *testing.T) {
		assert.True(t, persistence.IsNotFound(fmt.Errorf("wrapped: %w", persistence.ErrTaskNotFound)))
		assert.True(t, persistence.IsNotFound(persistence.ErrWebhookTriggerNotFound))
		assert.False(t, persistence.IsNotFound(errors.New("boom")))
	})
}
