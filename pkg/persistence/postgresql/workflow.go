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

// WorkflowRepository handles workflow-related database operations.
// Steps live in workflow_steps and are replaced as a set on every save.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const workflowColumns = `
			id
		  , workspace_id
		  , name
		  , description
		  , icon
		  , color
		  , trigger
		  , active
		  , version
		  , created_by
		  , created_at
		  , updated_at`

// List returns the workflows of a workspace, or all workflows for an empty workspaceID.
func (r *WorkflowRepository) List(ctx context.Context, workspaceID string) ([]*models.Workflow, error) {
	query := `SELECT` + workflowColumns + `
		FROM workflows
		WHERE $1 = '' OR workspace_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			closeRows(ctx, r.logger, rows)

			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()

	closeRows(ctx, r.logger, rows)

	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	for _, workflow := range workflows {
		if err := r.loadSteps(ctx, workflow); err != nil {
			return nil, err
		}
	}

	return workflows, nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT` + workflowColumns + `
		FROM workflows
		WHERE id = $1
	`

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	if err := r.loadSteps(ctx, workflow); err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return workflow, nil
}

// Save upserts the workflow row and replaces its steps in one transaction.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) (err error) {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	triggerJSON, err := json.Marshal(workflow.Trigger)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, fmt.Errorf("failed to marshal trigger: %w", err))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, fmt.Errorf("failed to begin transaction: %w", err))
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	workflowQuery := `
		INSERT INTO workflows (id, workspace_id, name, description, icon, color, trigger,
			active, version, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			workspace_id = EXCLUDED.workspace_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			icon = EXCLUDED.icon,
			color = EXCLUDED.color,
			trigger = EXCLUDED.trigger,
			active = EXCLUDED.active,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at
	`

	_, err = tx.ExecContext(ctx, workflowQuery,
		workflow.ID,
		workflow.WorkspaceID,
		workflow.Name,
		workflow.Description,
		workflow.Icon,
		workflow.Color,
		triggerJSON,
		workflow.Active,
		workflow.Version,
		workflow.CreatedBy,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, fmt.Errorf("failed to save workflow base: %w", err))
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM workflow_steps WHERE workflow_id = $1", workflow.ID)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, fmt.Errorf("failed to delete existing steps: %w", err))
	}

	err = r.saveSteps(ctx, tx, workflow)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	err = tx.Commit()
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, fmt.Errorf("failed to commit transaction: %w", err))
	}

	return nil
}

func (r *WorkflowRepository) saveSteps(ctx context.Context, tx *sql.Tx, workflow *models.Workflow) error {
	stepQuery := `
		INSERT INTO workflow_steps (workflow_id, id, name, kind, config, position, parent_id, next_step_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, step := range workflow.Steps {
		step.WorkflowID = workflow.ID

		configJSON, err := json.Marshal(step.Config)
		if err != nil {
			return fmt.Errorf("failed to marshal config of step %s: %w", step.ID, err)
		}

		_, err = tx.ExecContext(ctx, stepQuery,
			workflow.ID,
			step.ID,
			step.Name,
			step.Kind,
			configJSON,
			step.Position,
			nullString(step.ParentID),
			nullString(step.NextStepID),
		)
		if err != nil {
			return fmt.Errorf("failed to save step %s: %w", step.ID, err)
		}
	}

	return nil
}

// Delete removes the workflow; steps and executions cascade.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, fmt.Errorf("failed to get rows affected: %w", err))
	}

	if rowsAffected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (r *WorkflowRepository) loadSteps(ctx context.Context, workflow *models.Workflow) error {
	query := `
		SELECT id, name, kind, config, position, parent_id, next_step_id
		FROM workflow_steps
		WHERE workflow_id = $1
		ORDER BY position, id
	`

	rows, err := r.db.QueryContext(ctx, query, workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to query workflow steps: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	steps := make([]*models.Step, 0)

	for rows.Next() {
		var (
			step                 models.Step
			configJSON           []byte
			parentID, nextStepID sql.NullString
		)

		err := rows.Scan(&step.ID, &step.Name, &step.Kind, &configJSON, &step.Position, &parentID, &nextStepID)
		if err != nil {
			return fmt.Errorf("failed to scan step: %w", err)
		}

		if err := decodeJSON(configJSON, &step.Config); err != nil {
			return fmt.Errorf("failed to unmarshal config of step %s: %w", step.ID, err)
		}

		step.WorkflowID = workflow.ID
		step.ParentID = stringPtr(parentID)
		step.NextStepID = stringPtr(nextStepID)

		steps = append(steps, &step)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating steps: %w", err)
	}

	workflow.Steps = steps

	return nil
}

func scanWorkflow(row scanner) (*models.Workflow, error) {
	var (
		workflow    models.Workflow
		triggerJSON []byte
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.WorkspaceID,
		&workflow.Name,
		&workflow.Description,
		&workflow.Icon,
		&workflow.Color,
		&triggerJSON,
		&workflow.Active,
		&workflow.Version,
		&workflow.CreatedBy,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeJSON(triggerJSON, &workflow.Trigger); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger: %w", err)
	}

	return &workflow, nil
}
