package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
)

// WebhookTriggerRepository handles webhook trigger database operations.
type WebhookTriggerRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const webhookTriggerColumns = `
			id
		  , workspace_id
		  , workflow_id
		  , name
		  , url
		  , secret
		  , active
		  , json_schema
		  , last_triggered
		  , trigger_count
		  , created_by
		  , created_at
		  , updated_at`

func (r *WebhookTriggerRepository) Save(ctx context.Context, trigger *models.WebhookTrigger) error {
	now := time.Now().UTC()
	if trigger.CreatedAt.IsZero() {
		trigger.CreatedAt = now
	}

	trigger.UpdatedAt = now

	var schemaJSON any
	if trigger.HasJSONSchema() {
		encoded, err := json.Marshal(trigger.JSONSchema)
		if err != nil {
			return fmt.Errorf("failed to marshal json schema: %w", err)
		}

		schemaJSON = encoded
	}

	query := `
		INSERT INTO webhook_triggers (id, workspace_id, workflow_id, name, url, secret, active, json_schema,
			last_triggered, trigger_count, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			active = EXCLUDED.active,
			json_schema = EXCLUDED.json_schema,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		trigger.ID,
		trigger.WorkspaceID,
		trigger.WorkflowID,
		trigger.Name,
		trigger.URL,
		trigger.Secret,
		trigger.Active,
		schemaJSON,
		trigger.LastTriggered,
		trigger.TriggerCount,
		trigger.CreatedBy,
		trigger.CreatedAt,
		trigger.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save webhook trigger %s: %w", trigger.ID, err)
	}

	return nil
}

func (r *WebhookTriggerRepository) GetByID(ctx context.Context, id string) (*models.WebhookTrigger, error) {
	query := `SELECT` + webhookTriggerColumns + ` FROM webhook_triggers WHERE id = $1`

	return r.getOne(r.db.QueryRowContext(ctx, query, id), id)
}

func (r *WebhookTriggerRepository) GetByURL(ctx context.Context, urlSuffix string) (*models.WebhookTrigger, error) {
	query := `SELECT` + webhookTriggerColumns + ` FROM webhook_triggers WHERE url = $1`

	return r.getOne(r.db.QueryRowContext(ctx, query, urlSuffix), "url "+urlSuffix)
}

func (r *WebhookTriggerRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]*models.WebhookTrigger, error) {
	query := `SELECT` + webhookTriggerColumns + `
		FROM webhook_triggers
		WHERE workspace_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook triggers: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	triggers := make([]*models.WebhookTrigger, 0)

	for rows.Next() {
		trigger, err := scanWebhookTrigger(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook trigger: %w", err)
		}

		triggers = append(triggers, trigger)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating webhook triggers: %w", err)
	}

	return triggers, nil
}

func (r *WebhookTriggerRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM webhook_triggers WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook trigger %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", persistence.ErrWebhookTriggerNotFound, id)
	}

	return nil
}

func (r *WebhookTriggerRepository) SetActive(ctx context.Context, id string, active bool) (*models.WebhookTrigger, error) {
	query := `
		UPDATE webhook_triggers
		SET active = $2, updated_at = $3
		WHERE id = $1
		RETURNING` + webhookTriggerColumns

	return r.getOne(r.db.QueryRowContext(ctx, query, id, active, time.Now().UTC()), id)
}

// RecordInvocation increments the counter in a single statement so concurrent
// calls never lose an update.
func (r *WebhookTriggerRepository) RecordInvocation(ctx context.Context, id string, at time.Time) (*models.WebhookTrigger, error) {
	query := `
		UPDATE webhook_triggers
		SET trigger_count = trigger_count + 1, last_triggered = $2, updated_at = $2
		WHERE id = $1
		RETURNING` + webhookTriggerColumns

	return r.getOne(r.db.QueryRowContext(ctx, query, id, at), id)
}

func (r *WebhookTriggerRepository) getOne(row *sql.Row, key string) (*models.WebhookTrigger, error) {
	trigger, err := scanWebhookTrigger(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", persistence.ErrWebhookTriggerNotFound, key)
		}

		return nil, fmt.Errorf("failed to scan webhook trigger: %w", err)
	}

	return trigger, nil
}

func scanWebhookTrigger(row scanner) (*models.WebhookTrigger, error) {
	var (
		trigger       models.WebhookTrigger
		schemaJSON    []byte
		lastTriggered sql.NullTime
	)

	err := row.Scan(
		&trigger.ID,
		&trigger.WorkspaceID,
		&trigger.WorkflowID,
		&trigger.Name,
		&trigger.URL,
		&trigger.Secret,
		&trigger.Active,
		&schemaJSON,
		&lastTriggered,
		&trigger.TriggerCount,
		&trigger.CreatedBy,
		&trigger.CreatedAt,
		&trigger.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeJSON(schemaJSON, &trigger.JSONSchema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal json schema: %w", err)
	}

	if lastTriggered.Valid {
		at := lastTriggered.Time.UTC()
		trigger.LastTriggered = &at
	}

	return &trigger, nil
}
