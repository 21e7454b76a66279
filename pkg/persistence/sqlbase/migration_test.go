package sqlbase

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func versions(migrations []Migration) []int {
	out := make([]int, 0, len(migrations))
	for _, migration := range migrations {
		out = append(out, migration.Version)
	}

	return out
}

func TestMigrationManager_Pending(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := NewMigrationManager(logger, nil, []Migration{
		{Version: 3, Name: "three", SQL: "SELECT 3"},
		{Version: 1, Name: "one", SQL: "SELECT 1"},
		{Version: 2, Name: "two", SQL: "SELECT 2"},
	})

	assert.Equal(t, 3, manager.LatestVersion())
	assert.Equal(t, []int{1, 2, 3}, versions(manager.pending(0)))
	assert.Equal(t, []int{3}, versions(manager.pending(2)))
	assert.Empty(t, manager.pending(3))
	assert.Empty(t, manager.pending(7))
}

func TestMigrationManager_Empty(t *testing.T) {
	manager := NewMigrationManager(slog.New(slog.NewTextHandler(io.Discard, nil)), nil, nil)

	assert.Equal(t, 0, manager.LatestVersion())
	assert.Empty(t, manager.pending(0))
}
