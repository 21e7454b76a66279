package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/taskflow/pkg/channels/gochannel"
	"github.com/dukex/taskflow/pkg/eventbus"
	"github.com/dukex/taskflow/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	received := make(chan *events.WorkflowExecutionCompleted, 1)

	require.NoError(t, bus.Handle(events.WorkflowExecutionCompletedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.WorkflowExecutionCompleted)

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	// Unhandled types are dropped silently.
	require.NoError(t, bus.Publish(t.Context(), "wf-1", events.WorkflowExecutionStarted{
		BaseEvent: events.NewBaseEvent(events.WorkflowExecutionStartedEvent, "wf-1", "exec-1"),
	}))
	require.NoError(t, bus.Publish(t.Context(), "wf-1", events.WorkflowExecutionCompleted{
		BaseEvent: events.NewBaseEvent(events.WorkflowExecutionCompletedEvent, "wf-1", "exec-1"),
		Output:    map[string]any{"greeting": "hello"},
	}))

	select {
	case event := <-received:
		assert.Equal(t, "exec-1", event.ExecutionID)
		assert.Equal(t, "hello", event.Output["greeting"])
	case <-time.After(2 * time.Second):
		t.Fatal("completed event was not delivered")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
