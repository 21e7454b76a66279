package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/taskflow/pkg/persistence"
	"github.com/dukex/taskflow/pkg/persistence/file"
	"github.com/dukex/taskflow/pkg/persistence/postgresql"
)

const (
	fileProvider     = "file"
	postgresProvider = "postgres"
)

// NewPersistence picks the storage backend from the database URL scheme.
// postgres:// and postgresql:// select PostgreSQL; anything else is a file path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case postgresProvider:
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL persistence: %w", err)
		}

		return p, nil
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return fileProvider
	}

	switch scheme {
	case "postgres", "postgresql":
		return postgresProvider
	default:
		return fileProvider
	}
}
