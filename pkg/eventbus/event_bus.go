// Package eventbus carries execution lifecycle events between the engine and whoever listens.
package eventbus

import (
	"context"

	"github.com/dukex/taskflow/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

// EventPublisher is all the engine and the webhook gateway need.
// key groups related events, usually the workflow id.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventHandler receives a pointer to the decoded event, e.g. *events.WorkflowExecutionFailed.
type EventHandler func(ctx context.Context, event any) error

type EventSubscriber interface {
	// Handle registers the handler for one event type; a later call replaces it.
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventBus interface {
	EventPublisher
	EventSubscriber
	GenerateID() string
	Close() error
}
