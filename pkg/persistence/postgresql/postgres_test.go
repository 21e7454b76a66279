package postgresql_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
	"github.com/dukex/taskflow/pkg/persistence/postgresql"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"notifications", "tasks", "webhook_triggers", "executions", "workflow_steps", "workflows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("taskflow_test"),
			postgres.WithUsername("taskflow"),
			postgres.WithPassword("taskflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, p.Close(ctx))
		dropDb(ctx, t, databaseURL)
		cancel()
	})

	return p, ctx
}

func strPtr(s string) *string { return &s }

func sampleWorkflow(id string) *models.Workflow {
	return &models.Workflow{
		ID:          id,
		WorkspaceID: "ws-1",
		Name:        "Onboarding",
		Description: "welcome new users",
		Trigger:     models.TriggerDescriptor{Type: models.TriggerTypeEvent, Event: "user.created"},
		Active:      true,
		Version:     1,
		Steps: []*models.Step{
			{ID: "check", Name: "check", Kind: models.StepKindCondition, Position: 0, Config: map[string]any{"field": "{{input.plan}}", "operator": "equals", "value": "pro"}},
			{ID: "notify", Name: "notify", Kind: models.StepKindNotification, Position: 0, ParentID: strPtr("check"), NextStepID: strPtr("log"), Config: map[string]any{"branch": true, "userId": "u1", "title": "hi", "message": "welcome"}},
			{ID: "log", Name: "log", Kind: models.StepKindAction, Position: 1, ParentID: strPtr("check"), Config: map[string]any{"actionType": "set_variable", "variableName": "done", "value": true}},
		},
	}
}

func TestNewPersistence_MigrationsAndHealth(t *testing.T) {
	p, ctx := setupTestDB(t)

	require.NoError(t, p.HealthCheck(ctx))

	workflows, err := p.WorkflowRepository().List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, workflows)
}

func TestWorkflowRepository_SaveAndGet(t *testing.T) {
	p, ctx := setupTestDB(t)
	repo := p.WorkflowRepository()

	require.NoError(t, repo.Save(ctx, sampleWorkflow("wf-1")))

	got, err := repo.GetByID(ctx, "wf-1")
	require.NoError(t, err)

	assert.Equal(t, "Onboarding", got.Name)
	assert.Equal(t, models.TriggerTypeEvent, got.Trigger.Type)
	assert.Equal(t, "user.created", got.Trigger.Event)
	require.Len(t, got.Steps, 3)
	assert.Equal(t, "check", got.Steps[0].ID)
	assert.Nil(t, got.Steps[0].ParentID)
	assert.Equal(t, "equals", got.Steps[0].Config["operator"])

	byID := map[string]*models.Step{}
	for _, step := range got.Steps {
		byID[step.ID] = step
	}

	require.NotNil(t, byID["notify"].ParentID)
	assert.Equal(t, "check", *byID["notify"].ParentID)
	require.NotNil(t, byID["notify"].NextStepID)
	assert.Equal(t, "log", *byID["notify"].NextStepID)
	assert.Equal(t, true, byID["notify"].Config["branch"])
}

func TestWorkflowRepository_SaveReplacesSteps(t *testing.T) {
	p, ctx := setupTestDB(t)
	repo := p.WorkflowRepository()

	workflow := sampleWorkflow("wf-1")
	require.NoError(t, repo.Save(ctx, workflow))

	workflow.ReplaceSteps([]*models.Step{
		{ID: "only", Name: "only", Kind: models.StepKindDelay, Config: map[string]any{"duration": 0}},
	})
	require.NoError(t, repo.Save(ctx, workflow))

	got, err := repo.GetByID(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, "only", got.Steps[0].ID)
	assert.Equal(t, 2, got.Version)
}

func TestWorkflowRepository_NotFoundAndList(t *testing.T) {
	p, ctx := setupTestDB(t)
	repo := p.WorkflowRepository()

	_, err := repo.GetByID(ctx, "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	require.NoError(t, repo.Save(ctx, sampleWorkflow("wf-1")))

	other := sampleWorkflow("wf-2")
	other.WorkspaceID = "ws-2"
	require.NoError(t, repo.Save(ctx, other))

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := repo.List(ctx, "ws-2")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "wf-2", scoped[0].ID)
	assert.Len(t, scoped[0].Steps, 3)
}

func TestWorkflowRepository_DeleteCascadesExecutions(t *testing.T) {
	p, ctx := setupTestDB(t)

	require.NoError(t, p.WorkflowRepository().Save(ctx, sampleWorkflow("wf-1")))

	execution := &models.Execution{
		ID:          "exec-1",
		WorkflowID:  "wf-1",
		Status:      models.ExecutionStatusRunning,
		Input:       map[string]any{"plan": "pro"},
		Logs:        []models.LogEntry{},
		TriggeredBy: "manual",
		StartedAt:   time.Now().UTC(),
	}
	require.NoError(t, p.ExecutionRepository().Save(ctx, execution))

	require.NoError(t, p.WorkflowRepository().Delete(ctx, "wf-1"))

	_, err := p.ExecutionRepository().GetByID(ctx, "exec-1")
	assert.True(t, persistence.IsExecutionNotFound(err))

	err = p.WorkflowRepository().Delete(ctx, "wf-1")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestExecutionRepository_Lifecycle(t *testing.T) {
	p, ctx := setupTestDB(t)
	repo := p.ExecutionRepository()

	require.NoError(t, p.WorkflowRepository().Save(ctx, sampleWorkflow("wf-1")))

	started := time.Now().UTC().Add(-time.Minute)
	first := &models.Execution{
		ID: "exec-1", WorkflowID: "wf-1", Status: models.ExecutionStatusRunning,
		Input: map[string]any{"n": 1}, TriggeredBy: "manual", StartedAt: started,
	}
	second := &models.Execution{
		ID: "exec-2", WorkflowID: "wf-1", Status: models.ExecutionStatusRunning,
		TriggeredBy: "webhook", StartedAt: started.Add(time.Second),
	}

	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))

	first.Finish(models.ExecutionStatusCompleted, time.Now().UTC())
	first.Output = map[string]any{"greeting": "hello"}
	first.Logs = []models.LogEntry{{StepID: "check", StepName: "check", StepKind: models.StepKindCondition, Status: models.LogStatusCompleted, Timestamp: started}}
	require.NoError(t, repo.Save(ctx, first))

	got, err := repo.GetByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, got.Status)
	assert.Equal(t, map[string]any{"n": float64(1)}, got.Input)
	assert.Equal(t, "hello", got.Output["greeting"])
	require.Len(t, got.Logs, 1)
	assert.Equal(t, "check", got.Logs[0].StepID)
	require.NotNil(t, got.CompletedAt)

	list, err := repo.ListByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "exec-2", list[0].ID)
	assert.Nil(t, list[0].Output)
	assert.Empty(t, list[0].Logs)
}

func TestExecutionRepository_FinishRunning(t *testing.T) {
	p, ctx := setupTestDB(t)
	repo := p.ExecutionRepository()

	require.NoError(t, p.WorkflowRepository().Save(ctx, sampleWorkflow("wf-1")))

	execution := &models.Execution{
		ID: "exec-1", WorkflowID: "wf-1", Status: models.ExecutionStatusRunning,
		TriggeredBy: "manual", StartedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Save(ctx, execution))

	completed := *execution
	completed.Finish(models.ExecutionStatusCompleted, time.Now().UTC())
	completed.Output = map[string]any{}
	require.NoError(t, repo.FinishRunning(ctx, &completed))

	got, err := repo.GetByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, got.Status)
	require.NotNil(t, got.Output)
	assert.Empty(t, got.Output)

	cancelled := *execution
	cancelled.Finish(models.ExecutionStatusCancelled, time.Now().UTC())
	err = repo.FinishRunning(ctx, &cancelled)
	assert.True(t, persistence.IsExecutionNotRunning(err))

	got, err = repo.GetByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, got.Status)

	err = repo.FinishRunning(ctx, &models.Execution{ID: "missing", Status: models.ExecutionStatusFailed})
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestWebhookTriggerRepository(t *testing.T) {
	p, ctx := setupTestDB(t)
	repo := p.WebhookTriggerRepository()

	trigger := &models.WebhookTrigger{
		ID:          "trg-1",
		WorkspaceID: "ws-1",
		WorkflowID:  "wf-1",
		Name:        "inbound",
		URL:         "abc123",
		Secret:      "s3cret",
		Active:      true,
		JSONSchema:  map[string]any{"type": "object"},
	}
	require.NoError(t, repo.Save(ctx, trigger))

	got, err := repo.GetByURL(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "trg-1", got.ID)
	assert.Equal(t, "object", got.JSONSchema["type"])
	assert.Nil(t, got.LastTriggered)

	_, err = repo.GetByURL(ctx, "nope")
	assert.True(t, persistence.IsWebhookTriggerNotFound(err))

	list, err := repo.ListByWorkspace(ctx, "ws-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, "trg-1"))
	assert.True(t, persistence.IsWebhookTriggerNotFound(repo.Delete(ctx, "trg-1")))
}

func TestWebhookTriggerRepository_RecordInvocationConcurrent(t *testing.T) {
	p, ctx := setupTestDB(t)
	repo := p.WebhookTriggerRepository()

	require.NoError(t, repo.Save(ctx, &models.WebhookTrigger{
		ID: "trg-1", WorkspaceID: "ws-1", WorkflowID: "wf-1", Name: "inbound", URL: "abc", Secret: "s", Active: true,
	}))

	var wg sync.WaitGroup

	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := repo.RecordInvocation(ctx, "trg-1", time.Now().UTC())
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	got, err := repo.GetByID(ctx, "trg-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.TriggerCount)
	assert.NotNil(t, got.LastTriggered)

	_, err = repo.RecordInvocation(ctx, "missing", time.Now())
	assert.True(t, persistence.IsWebhookTriggerNotFound(err))
}

func TestWebhookTriggerRepository_SetActiveKeepsCounters(t *testing.T) {
	p, ctx := setupTestDB(t)
	repo := p.WebhookTriggerRepository()

	require.NoError(t, repo.Save(ctx, &models.WebhookTrigger{
		ID: "trg-1", WorkspaceID: "ws-1", WorkflowID: "wf-1", Name: "inbound", URL: "abc", Secret: "s", Active: true,
	}))

	var wg sync.WaitGroup

	for i := range 10 {
		wg.Add(2)

		go func() {
			defer wg.Done()

			_, err := repo.RecordInvocation(ctx, "trg-1", time.Now().UTC())
			assert.NoError(t, err)
		}()

		go func() {
			defer wg.Done()

			_, err := repo.SetActive(ctx, "trg-1", i%2 == 0)
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	got, err := repo.SetActive(ctx, "trg-1", false)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, int64(10), got.TriggerCount)

	_, err = repo.SetActive(ctx, "missing", true)
	assert.True(t, persistence.IsWebhookTriggerNotFound(err))
}

func TestDomainStore_Postgres(t *testing.T) {
	p, ctx := setupTestDB(t)
	store := persistence.NewDomainStore(p)

	title := "Write report"
	task, err := store.CreateTask(ctx, models.TaskFields{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "todo", task.Status)

	status := "done"
	updated, err := store.UpdateTask(ctx, task.ID, models.TaskFields{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "done", updated.Status)
	assert.Equal(t, title, updated.Title)

	require.NoError(t, store.DeleteTask(ctx, task.ID))
	assert.True(t, persistence.IsTaskNotFound(store.DeleteTask(ctx, task.ID)))

	require.NoError(t, store.CreateNotification(ctx, "u1", "hi", "there"))

	notifications, err := p.NotificationRepository().ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "there", notifications[0].Message)
}
