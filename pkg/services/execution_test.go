package services

import (
	"io"
	"log/slog"
	"testing"

	"github.com/dukex/taskflow/pkg/egress"
	"github.com/dukex/taskflow/pkg/engine"
	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionService_RunListAndGet(t *testing.T) {
	workflows, p := newWorkflowService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	executor := engine.NewExecutor(persistence.NewDomainStore(p), egress.NewClient(0, logger), logger)
	service := NewExecution(p, engine.NewController(p, executor, nil, engine.Config{}, logger))

	workflow, err := workflows.Create(t.Context(), CreateWorkflowRequest{
		WorkspaceID: "ws-1",
		Name:        "Task creator",
		Steps: []*models.Step{
			{ID: "create", Name: "Create", Kind: models.StepKindAction, Config: map[string]any{"actionType": "create_task", "title": "Call {{input.who}}"}},
		},
	})
	require.NoError(t, err)

	result, err := service.Execute(t.Context(), workflow.ID, map[string]any{"who": "Ana"}, "user-1")
	require.NoError(t, err)

	created, ok := result.Output["createdTask"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Call Ana", created["title"])

	execution, err := service.Get(t.Context(), result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, "user-1", execution.TriggeredBy)

	executions, err := service.ListByWorkflow(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Len(t, executions, 1)

	_, err = service.ListByWorkflow(t.Context(), "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	_, err = service.Cancel(t.Context(), result.ExecutionID)
	require.ErrorIs(t, err, engine.ErrExecutionTerminal)
}
