package file

import (
	"context"
	"fmt"
	"sort"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
)

type TaskRepository struct {
	collection collection
}

func (tr *TaskRepository) Save(_ context.Context, task *models.Task) error {
	tr.collection.mu.Lock()
	defer tr.collection.mu.Unlock()

	return tr.collection.write(task.ID, task)
}

func (tr *TaskRepository) GetByID(_ context.Context, id string) (*models.Task, error) {
	tr.collection.mu.RLock()
	defer tr.collection.mu.RUnlock()

	var task models.Task

	found, err := tr.collection.read(id, &task)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("%w: %s", persistence.ErrTaskNotFound, id)
	}

	return &task, nil
}

func (tr *TaskRepository) Delete(_ context.Context, id string) error {
	tr.collection.mu.Lock()
	defer tr.collection.mu.Unlock()

	found, err := tr.collection.remove(id)
	if err != nil {
		return err
	}

	if !found {
		return fmt.Errorf("%w: %s", persistence.ErrTaskNotFound, id)
	}

	return nil
}

type NotificationRepository struct {
	collection collection
}

func (nr *NotificationRepository) Save(_ context.Context, notification *models.Notification) error {
	nr.collection.mu.Lock()
	defer nr.collection.mu.Unlock()

	return nr.collection.write(notification.ID, notification)
}

func (nr *NotificationRepository) ListByUser(_ context.Context, userID string) ([]*models.Notification, error) {
	nr.collection.mu.RLock()
	defer nr.collection.mu.RUnlock()

	notifications, err := scan(nr.collection, func(n *models.Notification) bool {
		return n.UserID == userID
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.Before(notifications[j].CreatedAt)
	})

	return notifications, nil
}
