// Package sqlbase versions SQL schemas for the database/sql backed stores.
package sqlbase

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
)

// Migration is one schema step. Versions must be unique and positive.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationManager applies migrations not yet recorded in schema_migrations.
type MigrationManager struct {
	db         *sql.DB
	logger     *slog.Logger
	migrations []Migration
}

func NewMigrationManager(logger *slog.Logger, db *sql.DB, migrations []Migration) *MigrationManager {
	ordered := slices.Clone(migrations)
	slices.SortFunc(ordered, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })

	return &MigrationManager{
		db:         db,
		logger:     logger.With("module", "migrations"),
		migrations: ordered,
	}
}

func (m *MigrationManager) LatestVersion() int {
	if len(m.migrations) == 0 {
		return 0
	}

	return m.migrations[len(m.migrations)-1].Version
}

// CurrentVersion reads the highest applied version, 0 on a fresh database.
func (m *MigrationManager) CurrentVersion(ctx context.Context) (int, error) {
	var version int

	err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}

	return version, nil
}

// RunMigrations brings the schema to LatestVersion, one transaction per migration.
func (m *MigrationManager) RunMigrations(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL DEFAULT '',
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	pending := m.pending(current)
	m.logger.InfoContext(ctx, "Checking schema", "version", current, "pending", len(pending))

	for _, migration := range pending {
		if err := m.apply(ctx, migration); err != nil {
			return err
		}
	}

	return nil
}

func (m *MigrationManager) pending(from int) []Migration {
	idx, _ := slices.BinarySearchFunc(m.migrations, from+1, func(mig Migration, version int) int {
		return cmp.Compare(mig.Version, version)
	})

	return m.migrations[idx:]
}

func (m *MigrationManager) apply(ctx context.Context, migration Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: %w", migration.Version, err)
	}

	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		return fmt.Errorf("migration %d (%s): %w", migration.Version, migration.Name, err)
	}

	_, err = tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", migration.Version, migration.Name)
	if err != nil {
		return fmt.Errorf("migration %d: failed to record: %w", migration.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d: failed to commit: %w", migration.Version, err)
	}

	m.logger.InfoContext(ctx, "Applied migration", "version", migration.Version, "name", migration.Name)

	return nil
}
