package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
)

// ExecutionRepository handles execution-related database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const executionColumns = `
			id
		  , workflow_id
		  , status
		  , input
		  , output
		  , logs
		  , error
		  , triggered_by
		  , started_at
		  , completed_at`

func (r *ExecutionRepository) Save(ctx context.Context, execution *models.Execution) error {
	inputJSON, outputJSON, logsJSON, err := encodeExecution(execution)
	if err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	query := `
		INSERT INTO executions (id, workflow_id, status, input, output, logs, error, triggered_by, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			output = EXCLUDED.output,
			logs = EXCLUDED.logs,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.Status,
		inputJSON,
		outputJSON,
		logsJSON,
		execution.Error,
		execution.TriggeredBy,
		execution.StartedAt,
		execution.CompletedAt,
	)
	if err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) FinishRunning(ctx context.Context, execution *models.Execution) error {
	_, outputJSON, logsJSON, err := encodeExecution(execution)
	if err != nil {
		return persistence.NewExecutionError("FinishRunning", execution.ID, err)
	}

	query := `
		UPDATE executions
		SET status = $2, output = $3, logs = $4, error = $5, completed_at = $6
		WHERE id = $1 AND status = 'running'
	`

	result, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.Status,
		outputJSON,
		logsJSON,
		execution.Error,
		execution.CompletedAt,
	)
	if err != nil {
		return persistence.NewExecutionError("FinishRunning", execution.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError("FinishRunning", execution.ID, err)
	}

	if rowsAffected > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM executions WHERE id = $1)`, execution.ID).Scan(&exists); err != nil {
		return persistence.NewExecutionError("FinishRunning", execution.ID, err)
	}

	if !exists {
		return persistence.NewExecutionError("FinishRunning", execution.ID, persistence.ErrExecutionNotFound)
	}

	return persistence.NewExecutionError("FinishRunning", execution.ID, persistence.ErrExecutionNotRunning)
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	query := `SELECT` + executionColumns + `
		FROM executions
		WHERE id = $1
	`

	execution, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return execution, nil
}

// ListByWorkflow returns the executions of a workflow, most recent first.
func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	query := `SELECT` + executionColumns + `
		FROM executions
		WHERE workflow_id = $1
		ORDER BY started_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions of workflow %s: %w", workflowID, err)
	}

	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

// encodeExecution returns the JSON columns of an execution. A nil output is SQL NULL.
func encodeExecution(execution *models.Execution) ([]byte, any, []byte, error) {
	inputJSON, err := json.Marshal(execution.Input)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal input: %w", err)
	}

	var outputJSON any
	if execution.Output != nil {
		encoded, err := json.Marshal(execution.Output)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal output: %w", err)
		}

		outputJSON = encoded
	}

	logs := execution.Logs
	if logs == nil {
		logs = make([]models.LogEntry, 0)
	}

	logsJSON, err := json.Marshal(logs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal logs: %w", err)
	}

	return inputJSON, outputJSON, logsJSON, nil
}

func scanExecution(row scanner) (*models.Execution, error) {
	var (
		execution                      models.Execution
		inputJSON, outputJSON, logsRaw []byte
		completedAt                    sql.NullTime
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.Status,
		&inputJSON,
		&outputJSON,
		&logsRaw,
		&execution.Error,
		&execution.TriggeredBy,
		&execution.StartedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeJSON(inputJSON, &execution.Input); err != nil {
		return nil, fmt.Errorf("failed to unmarshal input: %w", err)
	}

	if err := decodeJSON(outputJSON, &execution.Output); err != nil {
		return nil, fmt.Errorf("failed to unmarshal output: %w", err)
	}

	execution.Logs = make([]models.LogEntry, 0)
	if err := decodeJSON(logsRaw, &execution.Logs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal logs: %w", err)
	}

	if completedAt.Valid {
		at := completedAt.Time.UTC()
		execution.CompletedAt = &at
	}

	execution.StartedAt = execution.StartedAt.UTC()

	return &execution, nil
}
