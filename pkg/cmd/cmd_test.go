package cmd

import (
	"io"
	"log/slog"
	"testing"

	"github.com/dukex/taskflow/pkg/channels/kafka"
	"github.com/dukex/taskflow/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePersistenceProvider(t *testing.T) {
	tests := map[string]string{
		"file:///var/lib/taskflow":          fileProvider,
		"./data":                            fileProvider,
		"postgres://u:p@localhost/taskflow": postgresProvider,
		"postgresql://localhost/taskflow":   postgresProvider,
		"mysql://localhost/taskflow":        fileProvider,
	}

	for url, expected := range tests {
		assert.Equal(t, expected, parsePersistenceProvider(url), url)
	}
}

func TestNewPersistence_File(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p, err := NewPersistence(t.Context(), logger, "file://"+t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &file.Persistence{}, p)
	assert.NoError(t, p.HealthCheck(t.Context()))
}

func TestNewEventBus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	bus, err := NewEventBus("gochannel", "", logger)
	require.NoError(t, err)
	require.NotNil(t, bus)
	assert.NoError(t, bus.Close())

	_, err = NewEventBus("kafka", " , ", logger)
	assert.ErrorIs(t, err, kafka.ErrNoBrokers)

	_, err = NewEventBus("nats", "", logger)
	assert.ErrorContains(t, err, "unsupported event bus provider")
}
