// Package file provides file-based persistence implementation for workflows, executions and webhook triggers.
package file

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/dukex/taskflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
// Every record is one JSON document under root/<collection>/<id>.json.
type Persistence struct {
	root string
	mu   sync.RWMutex

	workflowRepo      *WorkflowRepository
	executionRepo     *ExecutionRepository
	webhookRepo       *WebhookTriggerRepository
	taskRepo          *TaskRepository
	notificationsRepo *NotificationRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.executionRepo = &ExecutionRepository{collection: p.collection("executions")}
	p.workflowRepo = &WorkflowRepository{collection: p.collection("workflows"), executions: p.executionRepo}
	p.webhookRepo = &WebhookTriggerRepository{collection: p.collection("webhook_triggers")}
	p.taskRepo = &TaskRepository{collection: p.collection("tasks")}
	p.notificationsRepo = &NotificationRepository{collection: p.collection("notifications")}

	return p
}

func (fp *Persistence) collection(name string) collection {
	return collection{root: fp.root, name: name, mu: &fp.mu}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.executionRepo
}

func (fp *Persistence) WebhookTriggerRepository() persistence.WebhookTriggerRepository {
	return fp.webhookRepo
}

func (fp *Persistence) TaskRepository() persistence.TaskRepository {
	return fp.taskRepo
}

func (fp *Persistence) NotificationRepository() persistence.NotificationRepository {
	return fp.notificationsRepo
}
