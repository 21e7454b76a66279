package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNewPersistence(t *testing.T) {
	fp := NewPersistence("/tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)

	fp = NewPersistence("file:///tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)
}

func TestPersistence_HealthCheck(t *testing.T) {
	assert.NoError(t, NewPersistence(t.TempDir()).HealthCheck(t.Context()))
	assert.Error(t, NewPersistence(filepath.Join(t.TempDir(), "missing")).HealthCheck(t.Context()))
}

func TestWorkflowRepository_SaveAndGet(t *testing.T) {
	testDir := t.TempDir()
	p := NewPersistence(testDir)

	workflow := &models.Workflow{
		ID:          "wf-1",
		WorkspaceID: "ws-1",
		Name:        "Greeter",
		Trigger:     models.TriggerDescriptor{Type: models.TriggerTypeManual},
		Active:      true,
		Version:     1,
		Steps: []*models.Step{
			{ID: "cond", Name: "Check", Kind: models.StepKindCondition, Position: 0, Config: map[string]any{"operator": "equals"}},
			{ID: "child", Name: "Child", Kind: models.StepKindAction, Position: 0, ParentID: strPtr("cond"), Config: map[string]any{"branch": "true"}},
		},
	}

	require.NoError(t, p.WorkflowRepository().Save(t.Context(), workflow))
	assert.FileExists(t, filepath.Join(testDir, "workflows", "wf-1.json"))
	assert.False(t, workflow.CreatedAt.IsZero())

	loaded, err := p.WorkflowRepository().GetByID(t.Context(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Greeter", loaded.Name)
	require.Len(t, loaded.Steps, 2)
	assert.Equal(t, "wf-1", loaded.Steps[1].WorkflowID)
	assert.Equal(t, "cond", *loaded.Steps[1].ParentID)
}

func TestWorkflowRepository_SaveReplacesSteps(t *testing.T) {
	p := NewPersistence(t.TempDir())
	workflow := &models.Workflow{ID: "wf-1", WorkspaceID: "ws", Name: "n", Steps: []*models.Step{
		{ID: "a", Name: "A", Kind: models.StepKindDelay},
		{ID: "b", Name: "B", Kind: models.StepKindDelay},
	}}
	require.NoError(t, p.WorkflowRepository().Save(t.Context(), workflow))

	workflow.ReplaceSteps([]*models.Step{{ID: "c", Name: "C", Kind: models.StepKindDelay}})
	require.NoError(t, p.WorkflowRepository().Save(t.Context(), workflow))

	loaded, err := p.WorkflowRepository().GetByID(t.Context(), "wf-1")
	require.NoError(t, err)
	require.Len(t, loaded.Steps, 1)
	assert.Equal(t, "c", loaded.Steps[0].ID)
	assert.Equal(t, 1, loaded.Version)
}

func TestWorkflowRepository_NotFound(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.WorkflowRepository().GetByID(t.Context(), "nope")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = p.WorkflowRepository().Delete(t.Context(), "nope")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	_, err = p.WorkflowRepository().GetByID(t.Context(), "../etc/passwd")
	require.Error(t, err)
	assert.False(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_ListByWorkspace(t *testing.T) {
	p := NewPersistence(t.TempDir())

	for _, w := range []*models.Workflow{
		{ID: "a", WorkspaceID: "ws-1", Name: "A"},
		{ID: "b", WorkspaceID: "ws-2", Name: "B"},
		{ID: "c", WorkspaceID: "ws-1", Name: "C"},
	} {
		require.NoError(t, p.WorkflowRepository().Save(t.Context(), w))
	}

	workflows, err := p.WorkflowRepository().List(t.Context(), "ws-1")
	require.NoError(t, err)
	assert.Len(t, workflows, 2)

	all, err := p.WorkflowRepository().List(t.Context(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	empty, err := NewPersistence(t.TempDir()).WorkflowRepository().List(t.Context(), "")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestWorkflowRepository_DeleteCascadesExecutions(t *testing.T) {
	p := NewPersistence(t.TempDir())
	require.NoError(t, p.WorkflowRepository().Save(t.Context(), &models.Workflow{ID: "wf-1", Name: "n"}))
	require.NoError(t, p.ExecutionRepository().Save(t.Context(), &models.Execution{ID: "e1", WorkflowID: "wf-1", Status: models.ExecutionStatusCompleted}))
	require.NoError(t, p.ExecutionRepository().Save(t.Context(), &models.Execution{ID: "e2", WorkflowID: "other", Status: models.ExecutionStatusRunning}))

	require.NoError(t, p.WorkflowRepository().Delete(t.Context(), "wf-1"))

	_, err := p.ExecutionRepository().GetByID(t.Context(), "e1")
	assert.True(t, persistence.IsExecutionNotFound(err))

	_, err = p.ExecutionRepository().GetByID(t.Context(), "e2")
	assert.NoError(t, err)
}

func TestExecutionRepository_ListByWorkflow(t *testing.T) {
	p := NewPersistence(t.TempDir())
	base := time.Now().UTC()

	require.NoError(t, p.ExecutionRepository().Save(t.Context(), &models.Execution{ID: "old", WorkflowID: "wf", StartedAt: base}))
	require.NoError(t, p.ExecutionRepository().Save(t.Context(), &models.Execution{ID: "new", WorkflowID: "wf", StartedAt: base.Add(time.Minute)}))

	executions, err := p.ExecutionRepository().ListByWorkflow(t.Context(), "wf")
	require.NoError(t, err)
	require.Len(t, executions, 2)
	assert.Equal(t, "new", executions[0].ID)
}

func TestExecutionRepository_FinishRunningOnlyOnce(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.ExecutionRepository()

	execution := &models.Execution{ID: "e1", WorkflowID: "wf", Status: models.ExecutionStatusRunning, StartedAt: time.Now().UTC()}
	require.NoError(t, repo.Save(t.Context(), execution))

	cancelled := *execution
	cancelled.Finish(models.ExecutionStatusCancelled, time.Now().UTC())
	require.NoError(t, repo.FinishRunning(t.Context(), &cancelled))

	completed := *execution
	completed.Finish(models.ExecutionStatusCompleted, time.Now().UTC())
	completed.Output = map[string]any{}
	err := repo.FinishRunning(t.Context(), &completed)
	assert.True(t, persistence.IsExecutionNotRunning(err))

	stored, err := repo.GetByID(t.Context(), "e1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCancelled, stored.Status)

	err = repo.FinishRunning(t.Context(), &models.Execution{ID: "missing", Status: models.ExecutionStatusCompleted})
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestExecutionRepository_EmptyOutputSurvivesReload(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.ExecutionRepository()

	execution := &models.Execution{ID: "e1", WorkflowID: "wf", Status: models.ExecutionStatusRunning, StartedAt: time.Now().UTC()}
	require.NoError(t, repo.Save(t.Context(), execution))

	execution.Finish(models.ExecutionStatusCompleted, time.Now().UTC())
	execution.Output = map[string]any{}
	require.NoError(t, repo.FinishRunning(t.Context(), execution))

	stored, err := repo.GetByID(t.Context(), "e1")
	require.NoError(t, err)
	require.NotNil(t, stored.Output)
	assert.Empty(t, stored.Output)
}

func TestWebhookTriggerRepository(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.WebhookTriggerRepository()

	trigger := &models.WebhookTrigger{ID: "t1", WorkspaceID: "ws", WorkflowID: "wf", URL: "abc", Secret: "s", Active: true}
	require.NoError(t, repo.Save(t.Context(), trigger))

	byURL, err := repo.GetByURL(t.Context(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "t1", byURL.ID)

	_, err = repo.GetByURL(t.Context(), "zzz")
	assert.True(t, persistence.IsWebhookTriggerNotFound(err))

	listed, err := repo.ListByWorkspace(t.Context(), "ws")
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, repo.Delete(t.Context(), "t1"))
	assert.True(t, persistence.IsWebhookTriggerNotFound(repo.Delete(t.Context(), "t1")))
}

func TestWebhookTriggerRepository_RecordInvocationIsAtomic(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.WebhookTriggerRepository()
	require.NoError(t, repo.Save(t.Context(), &models.WebhookTrigger{ID: "t1", URL: "abc", Active: true}))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := repo.RecordInvocation(t.Context(), "t1", time.Now().UTC())
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	trigger, err := repo.GetByID(t.Context(), "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), trigger.TriggerCount)
	assert.NotNil(t, trigger.LastTriggered)
}

func TestDomainStoreOnFilePersistence(t *testing.T) {
	p := NewPersistence(t.TempDir())
	store := persistence.NewDomainStore(p)

	task, err := store.CreateTask(t.Context(), models.TaskFields{Title: strPtr("Write report")})
	require.NoError(t, err)
	assert.Equal(t, "Write report", task.Title)
	assert.Equal(t, "todo", task.Status)

	updated, err := store.UpdateTask(t.Context(), task.ID, models.TaskFields{Status: strPtr("done")})
	require.NoError(t, err)
	assert.Equal(t, "done", updated.Status)
	assert.Equal(t, "Write report", updated.Title)

	require.NoError(t, store.DeleteTask(t.Context(), task.ID))
	_, err = store.UpdateTask(t.Context(), task.ID, models.TaskFields{})
	assert.True(t, persistence.IsTaskNotFound(err))

	require.NoError(t, store.CreateNotification(t.Context(), "u1", "Hi", "There"))
	notifications, err := p.NotificationRepository().ListByUser(t.Context(), "u1")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "There", notifications[0].Message)
}

func TestCollection_SkipsForeignFiles(t *testing.T) {
	testDir := t.TempDir()
	p := NewPersistence(testDir)
	require.NoError(t, p.WorkflowRepository().Save(t.Context(), &models.Workflow{ID: "a", Name: "A"}))
	require.NoError(t, os.WriteFile(filepath.Join(testDir, "workflows", "README.txt"), []byte("x"), 0600))

	workflows, err := p.WorkflowRepository().List(t.Context(), "")
	require.NoError(t, err)
	assert.Len(t, workflows, 1)
}
