// Package postgresql provides PostgreSQL persistence implementation for workflows, executions and webhook triggers.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukex/taskflow/pkg/persistence"
	"github.com/dukex/taskflow/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	workflowRepo     *WorkflowRepository
	executionRepo    *ExecutionRepository
	webhookRepo      *WebhookTriggerRepository
	taskRepo         *TaskRepository
	notificationRepo *NotificationRepository
	migrator         *sqlbase.MigrationManager
}

// NewPersistence connects to databaseURL and brings the schema up to date.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrator := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrator.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger = logger.With("module", "postgresql")

	return &Persistence{
		db:               database,
		logger:           logger,
		migrator:         migrator,
		workflowRepo:     &WorkflowRepository{db: database, logger: logger},
		executionRepo:    &ExecutionRepository{db: database, logger: logger},
		webhookRepo:      &WebhookTriggerRepository{db: database, logger: logger},
		taskRepo:         &TaskRepository{db: database},
		notificationRepo: &NotificationRepository{db: database, logger: logger},
	}, nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executionRepo
}

func (p *Persistence) WebhookTriggerRepository() persistence.WebhookTriggerRepository {
	return p.webhookRepo
}

func (p *Persistence) TaskRepository() persistence.TaskRepository {
	return p.taskRepo
}

func (p *Persistence) NotificationRepository() persistence.NotificationRepository {
	return p.notificationRepo
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck pings the database and checks no newer schema was applied by another binary.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	version, err := p.migrator.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	if latest := p.migrator.LatestVersion(); version != latest {
		return fmt.Errorf("schema version %d does not match expected %d", version, latest)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

// decodeJSON leaves target untouched for SQL NULL.
func decodeJSON(raw []byte, target any) error {
	if raw == nil {
		return nil
	}

	return json.Unmarshal(raw, target)
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}

	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}

	return &s.String
}
