package persistence

import (
	"context"
	"time"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/google/uuid"
)

// DomainStore exposes the task and notification operations that workflow
// steps perform, backed by a Persistence.
type DomainStore struct {
	persistence Persistence
}

func NewDomainStore(persistence Persistence) *DomainStore {
	return &DomainStore{persistence: persistence}
}

func (d *DomainStore) CreateTask(ctx context.Context, fields models.TaskFields) (*models.Task, error) {
	now := time.Now().UTC()
	task := &models.Task{
		ID:        uuid.New().String(),
		Status:    "todo",
		Priority:  "medium",
		CreatedAt: now,
		UpdatedAt: now,
	}
	fields.Apply(task)

	if err := d.persistence.TaskRepository().Save(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

func (d *DomainStore) UpdateTask(ctx context.Context, id string, fields models.TaskFields) (*models.Task, error) {
	task, err := d.persistence.TaskRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields.Apply(task)
	task.UpdatedAt = time.Now().UTC()

	if err := d.persistence.TaskRepository().Save(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

func (d *DomainStore) DeleteTask(ctx context.Context, id string) error {
	return d.persistence.TaskRepository().Delete(ctx, id)
}

func (d *DomainStore) CreateNotification(ctx context.Context, userID, title, message string) error {
	return d.persistence.NotificationRepository().Save(ctx, &models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	})
}
