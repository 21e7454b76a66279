package services

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dukex/taskflow/pkg/mocks"
	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
	"github.com/dukex/taskflow/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func newWorkflowService(t *testing.T) (*Workflow, *file.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())

	return NewWorkflow(p, slog.New(slog.NewTextHandler(io.Discard, nil))), p
}

func validRequest() CreateWorkflowRequest {
	return CreateWorkflowRequest{
		WorkspaceID: "ws-1",
		Name:        "Onboarding",
		Steps: []*models.Step{
			{ID: "gate", Name: "Gate", Kind: models.StepKindCondition, Config: map[string]any{"operator": "equals", "left": "{{input.plan}}", "right": "pro"}},
			{ID: "welcome", Name: "Welcome", Kind: models.StepKindNotification, ParentID: strPtr("gate"), Config: map[string]any{"branch": "true"}},
		},
	}
}

func TestWorkflowService_Create(t *testing.T) {
	service, p := newWorkflowService(t)

	workflow, err := service.Create(t.Context(), validRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, workflow.ID)
	assert.Equal(t, 1, workflow.Version)
	assert.True(t, workflow.Active)
	assert.Equal(t, models.TriggerTypeManual, workflow.Trigger.Type)

	stored, err := p.WorkflowRepository().GetByID(t.Context(), workflow.ID)
	require.NoError(t, err)
	require.Len(t, stored.Steps, 2)
	assert.Equal(t, workflow.ID, stored.Steps[0].WorkflowID)
}

func TestWorkflowService_CreateGeneratesStepIDs(t *testing.T) {
	service, _ := newWorkflowService(t)
	req := validRequest()
	req.Steps = append(req.Steps, &models.Step{Name: "Pause", Kind: models.StepKindDelay})

	workflow, err := service.Create(t.Context(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, workflow.Steps[2].ID)
}

func TestWorkflowService_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateWorkflowRequest)
		target error
	}{
		{"missing name", func(r *CreateWorkflowRequest) { r.Name = "" }, ErrInvalidRequest},
		{"missing workspace", func(r *CreateWorkflowRequest) { r.WorkspaceID = "" }, ErrInvalidRequest},
		{"unknown kind", func(r *CreateWorkflowRequest) { r.Steps[0].Kind = "email" }, ErrInvalidRequest},
		{"duplicate ids", func(r *CreateWorkflowRequest) { r.Steps[1].ID = "gate" }, ErrInvalidStepTree},
		{"unknown parent", func(r *CreateWorkflowRequest) { r.Steps[1].ParentID = strPtr("nope") }, ErrInvalidStepTree},
		{"parent without children", func(r *CreateWorkflowRequest) {
			r.Steps[0].Kind = models.StepKindDelay
		}, ErrInvalidStepTree},
		{"unknown next step", func(r *CreateWorkflowRequest) { r.Steps[0].NextStepID = strPtr("nope") }, ErrInvalidStepTree},
		{"next step cycle", func(r *CreateWorkflowRequest) { r.Steps[1].NextStepID = strPtr("gate") }, ErrInvalidStepTree},
		{"scheduled without cron", func(r *CreateWorkflowRequest) {
			r.Trigger = models.TriggerDescriptor{Type: models.TriggerTypeScheduled}
		}, ErrInvalidTrigger},
		{"scheduled with bad cron", func(r *CreateWorkflowRequest) {
			r.Trigger = models.TriggerDescriptor{Type: models.TriggerTypeScheduled, Cron: "every day"}
		}, ErrInvalidTrigger},
		{"event without name", func(r *CreateWorkflowRequest) {
			r.Trigger = models.TriggerDescriptor{Type: models.TriggerTypeEvent}
		}, ErrInvalidTrigger},
		{"unknown trigger type", func(r *CreateWorkflowRequest) {
			r.Trigger = models.TriggerDescriptor{Type: "email"}
		}, ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newWorkflowService(t)
			req := validRequest()
			tt.mutate(&req)

			_, err := service.Create(t.Context(), req)
			require.ErrorIs(t, err, tt.target)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestWorkflowService_ScheduledTriggerAccepted(t *testing.T) {
	service, _ := newWorkflowService(t)
	req := validRequest()
	req.Trigger = models.TriggerDescriptor{Type: models.TriggerTypeScheduled, Cron: "*/5 * * * *"}

	workflow, err := service.Create(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, "*/5 * * * *", workflow.Trigger.Cron)
}

func TestWorkflowService_UpdateReplacesStepsAndBumpsVersion(t *testing.T) {
	service, p := newWorkflowService(t)
	workflow, err := service.Create(t.Context(), validRequest())
	require.NoError(t, err)

	updated, err := service.Update(t.Context(), workflow.ID, UpdateWorkflowRequest{
		Name:  strPtr("Renamed"),
		Steps: []*models.Step{{ID: "only", Name: "Only", Kind: models.StepKindDelay}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "Renamed", updated.Name)

	stored, err := p.WorkflowRepository().GetByID(t.Context(), workflow.ID)
	require.NoError(t, err)
	require.Len(t, stored.Steps, 1)
	assert.Equal(t, "only", stored.Steps[0].ID)
}

func TestWorkflowService_UpdateMetadataKeepsVersion(t *testing.T) {
	service, _ := newWorkflowService(t)
	workflow, err := service.Create(t.Context(), validRequest())
	require.NoError(t, err)

	updated, err := service.Update(t.Context(), workflow.ID, UpdateWorkflowRequest{Active: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, 1, updated.Version)
	assert.Len(t, updated.Steps, 2)
}

func TestWorkflowService_UpdateRejectsInvalidSteps(t *testing.T) {
	service, _ := newWorkflowService(t)
	workflow, err := service.Create(t.Context(), validRequest())
	require.NoError(t, err)

	_, err = service.Update(t.Context(), workflow.ID, UpdateWorkflowRequest{
		Steps: []*models.Step{{ID: "a", Name: "A", Kind: models.StepKindDelay, ParentID: strPtr("a")}},
	})
	require.ErrorIs(t, err, ErrInvalidStepTree)

	_, err = service.Update(t.Context(), "missing", UpdateWorkflowRequest{})
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowService_ListAndDelete(t *testing.T) {
	service, _ := newWorkflowService(t)
	first, err := service.Create(t.Context(), validRequest())
	require.NoError(t, err)

	other := validRequest()
	other.WorkspaceID = "ws-2"
	_, err = service.Create(t.Context(), other)
	require.NoError(t, err)

	workflows, err := service.List(t.Context(), "ws-1")
	require.NoError(t, err)
	require.Len(t, workflows, 1)
	assert.Equal(t, first.ID, workflows[0].ID)

	require.NoError(t, service.Delete(t.Context(), first.ID))

	_, err = service.FetchByID(t.Context(), first.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
	assert.True(t, persistence.IsWorkflowNotFound(service.Delete(t.Context(), first.ID)))
}

func TestWorkflowService_ListByTriggerEvent(t *testing.T) {
	service, _ := newWorkflowService(t)

	matching := validRequest()
	matching.Trigger = models.TriggerDescriptor{Type: models.TriggerTypeEvent, Event: "task.created"}
	created, err := service.Create(t.Context(), matching)
	require.NoError(t, err)

	inactive := validRequest()
	inactive.Trigger = models.TriggerDescriptor{Type: models.TriggerTypeEvent, Event: "task.created"}
	inactive.Active = boolPtr(false)
	_, err = service.Create(t.Context(), inactive)
	require.NoError(t, err)

	_, err = service.Create(t.Context(), validRequest())
	require.NoError(t, err)

	workflows, err := service.ListByTriggerEvent(t.Context(), "task.created")
	require.NoError(t, err)
	require.Len(t, workflows, 1)
	assert.Equal(t, created.ID, workflows[0].ID)
}

func TestWorkflowService_HealthCheck(t *testing.T) {
	service, _ := newWorkflowService(t)

	message, healthy := service.HealthCheck(t.Context())
	assert.True(t, healthy)
	assert.Equal(t, "Persistence layer is healthy", message)
}

func TestWorkflowService_HealthCheckUnhealthy(t *testing.T) {
	p := mocks.NewMockPersistence()
	p.On("HealthCheck", mock.Anything).Return(errors.New("connection refused"))

	service := NewWorkflow(p, slog.New(slog.NewTextHandler(io.Discard, nil)))

	message, healthy := service.HealthCheck(t.Context())
	assert.False(t, healthy)
	assert.Equal(t, "Persistence layer is unhealthy: connection refused", message)
	p.AssertExpectations(t)
}

func TestWorkflowService_CreateSaveFailure(t *testing.T) {
	p := mocks.NewMockPersistence()
	p.Workflows.On("Save", mock.Anything, mock.AnythingOfType("*models.Workflow")).Return(errors.New("disk full"))

	service := NewWorkflow(p, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := service.Create(t.Context(), validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, IsValidationError(err))
	p.Workflows.AssertExpectations(t)
}

func TestWorkflowService_InvalidRequestNeverSaves(t *testing.T) {
	p := mocks.NewMockPersistence()
	service := NewWorkflow(p, slog.New(slog.NewTextHandler(io.Discard, nil)))

	req := validRequest()
	req.Steps[1].ParentID = strPtr("missing")

	_, err := service.Create(t.Context(), req)
	require.ErrorIs(t, err, ErrInvalidStepTree)
	p.Workflows.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
