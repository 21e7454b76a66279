// Package persistence provides the data storage abstraction layer for workflows, executions and webhook triggers.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/taskflow/pkg/models"
)

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	WebhookTriggerRepository() WebhookTriggerRepository
	TaskRepository() TaskRepository
	NotificationRepository() NotificationRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflows together with their full step set.
type WorkflowRepository interface {
	// List returns workflows of a workspace, or every workflow when workspaceID is empty.
	List(ctx context.Context, workspaceID string) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	// Save upserts the workflow and replaces its steps with workflow.Steps.
	Save(ctx context.Context, workflow *models.Workflow) error
	// Delete removes the workflow, its steps and its executions.
	Delete(ctx context.Context, id string) error
}

type ExecutionRepository interface {
	Save(ctx context.Context, execution *models.Execution) error
	GetByID(ctx context.Context, id string) (*models.Execution, error)
	// FinishRunning stores a terminal execution only while the stored record is
	// still running. Otherwise it fails with ErrExecutionNotRunning and writes nothing.
	FinishRunning(ctx context.Context, execution *models.Execution) error
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error)
}

type WebhookTriggerRepository interface {
	Save(ctx context.Context, trigger *models.WebhookTrigger) error
	GetByID(ctx context.Context, id string) (*models.WebhookTrigger, error)
	GetByURL(ctx context.Context, urlSuffix string) (*models.WebhookTrigger, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*models.WebhookTrigger, error)
	Delete(ctx context.Context, id string) error
	// SetActive changes only the active flag, leaving the invocation counters untouched.
	SetActive(ctx context.Context, id string, active bool) (*models.WebhookTrigger, error)
	// RecordInvocation atomically increments the trigger count and sets lastTriggered.
	RecordInvocation(ctx context.Context, id string, at time.Time) (*models.WebhookTrigger, error)
}

type TaskRepository interface {
	Save(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	Delete(ctx context.Context, id string) error
}

type NotificationRepository interface {
	Save(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID string) ([]*models.Notification, error)
}
