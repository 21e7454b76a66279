// Package events defines event types and structures for workflow execution lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every lifecycle event; the event type travels in message metadata.
const Topic = "taskflow.workflow.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowExecutionStartedEvent   EventType = "workflow.execution.started"
	WorkflowExecutionCompletedEvent EventType = "workflow.execution.completed"
	WorkflowExecutionFailedEvent    EventType = "workflow.execution.failed"
	WorkflowExecutionCancelledEvent EventType = "workflow.execution.cancelled"

	WebhookTriggerInvokedEvent EventType = "webhook.trigger.invoked"
)

type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	WorkflowID  string    `json:"workflow_id"`
	ExecutionID string    `json:"execution_id,omitempty"`
}

// NewBaseEvent stamps a new event of the given type.
func NewBaseEvent(eventType EventType, workflowID, executionID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		WorkflowID:  workflowID,
		ExecutionID: executionID,
	}
}

type WorkflowExecutionStarted struct {
	BaseEvent

	TriggeredBy string `json:"triggered_by"`
	Input       any    `json:"input,omitempty"`
}

func (e WorkflowExecutionStarted) GetType() EventType {
	return WorkflowExecutionStartedEvent
}

type WorkflowExecutionCompleted struct {
	BaseEvent

	Output   map[string]any `json:"output,omitempty"`
	Duration time.Duration  `json:"duration"`
}

func (e WorkflowExecutionCompleted) GetType() EventType {
	return WorkflowExecutionCompletedEvent
}

type WorkflowExecutionFailed struct {
	BaseEvent

	Error    string        `json:"error"`
	StepID   string        `json:"step_id,omitempty"`
	Duration time.Duration `json:"duration"`
}

func (e WorkflowExecutionFailed) GetType() EventType {
	return WorkflowExecutionFailedEvent
}

type WorkflowExecutionCancelled struct {
	BaseEvent

	Reason string `json:"reason,omitempty"`
}

func (e WorkflowExecutionCancelled) GetType() EventType {
	return WorkflowExecutionCancelledEvent
}

// WebhookTriggerInvoked is published when a signed inbound call is accepted.
type WebhookTriggerInvoked struct {
	BaseEvent

	TriggerID    string `json:"trigger_id"`
	TriggerCount int64  `json:"trigger_count"`
}

func (e WebhookTriggerInvoked) GetType() EventType {
	return WebhookTriggerInvokedEvent
}
