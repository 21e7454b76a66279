package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
)

// WebhookTriggerRepository handles webhook trigger file operations.
type WebhookTriggerRepository struct {
	collection collection
}

func (wr *WebhookTriggerRepository) Save(_ context.Context, trigger *models.WebhookTrigger) error {
	wr.collection.mu.Lock()
	defer wr.collection.mu.Unlock()

	now := time.Now().UTC()
	if trigger.CreatedAt.IsZero() {
		trigger.CreatedAt = now
	}

	trigger.UpdatedAt = now

	return wr.collection.write(trigger.ID, trigger)
}

func (wr *WebhookTriggerRepository) GetByID(_ context.Context, id string) (*models.WebhookTrigger, error) {
	wr.collection.mu.RLock()
	defer wr.collection.mu.RUnlock()

	return wr.get(id)
}

func (wr *WebhookTriggerRepository) get(id string) (*models.WebhookTrigger, error) {
	var trigger models.WebhookTrigger

	found, err := wr.collection.read(id, &trigger)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("%w: %s", persistence.ErrWebhookTriggerNotFound, id)
	}

	return &trigger, nil
}

func (wr *WebhookTriggerRepository) GetByURL(_ context.Context, urlSuffix string) (*models.WebhookTrigger, error) {
	wr.collection.mu.RLock()
	defer wr.collection.mu.RUnlock()

	triggers, err := scan(wr.collection, func(t *models.WebhookTrigger) bool {
		return t.URL == urlSuffix
	})
	if err != nil {
		return nil, err
	}

	if len(triggers) == 0 {
		return nil, fmt.Errorf("%w: url %s", persistence.ErrWebhookTriggerNotFound, urlSuffix)
	}

	return triggers[0], nil
}

func (wr *WebhookTriggerRepository) ListByWorkspace(_ context.Context, workspaceID string) ([]*models.WebhookTrigger, error) {
	wr.collection.mu.RLock()
	defer wr.collection.mu.RUnlock()

	triggers, err := scan(wr.collection, func(t *models.WebhookTrigger) bool {
		return t.WorkspaceID == workspaceID
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(triggers, func(i, j int) bool {
		return triggers[i].CreatedAt.Before(triggers[j].CreatedAt)
	})

	return triggers, nil
}

func (wr *WebhookTriggerRepository) Delete(_ context.Context, id string) error {
	wr.collection.mu.Lock()
	defer wr.collection.mu.Unlock()

	found, err := wr.collection.remove(id)
	if err != nil {
		return err
	}

	if !found {
		return fmt.Errorf("%w: %s", persistence.ErrWebhookTriggerNotFound, id)
	}

	return nil
}

func (wr *WebhookTriggerRepository) SetActive(_ context.Context, id string, active bool) (*models.WebhookTrigger, error) {
	wr.collection.mu.Lock()
	defer wr.collection.mu.Unlock()

	trigger, err := wr.get(id)
	if err != nil {
		return nil, err
	}

	trigger.Active = active
	trigger.UpdatedAt = time.Now().UTC()

	if err := wr.collection.write(trigger.ID, trigger); err != nil {
		return nil, err
	}

	return trigger, nil
}

func (wr *WebhookTriggerRepository) RecordInvocation(_ context.Context, id string, at time.Time) (*models.WebhookTrigger, error) {
	wr.collection.mu.Lock()
	defer wr.collection.mu.Unlock()

	trigger, err := wr.get(id)
	if err != nil {
		return nil, err
	}

	trigger.TriggerCount++
	trigger.LastTriggered = &at
	trigger.UpdatedAt = at

	if err := wr.collection.write(trigger.ID, trigger); err != nil {
		return nil, err
	}

	return trigger, nil
}
