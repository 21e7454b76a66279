package otelhelper

import "go.opentelemetry.io/otel/attribute"

const (
	workflowIDKey       attribute.Key = "taskflow.workflow.id"
	executionIDKey      attribute.Key = "taskflow.execution.id"
	triggeredByKey      attribute.Key = "taskflow.execution.triggered_by"
	stepIDKey           attribute.Key = "taskflow.step.id"
	stepNameKey         attribute.Key = "taskflow.step.name"
	stepKindKey         attribute.Key = "taskflow.step.kind"
	webhookTriggerIDKey attribute.Key = "taskflow.webhook_trigger.id"
	eventNameKey        attribute.Key = "taskflow.event.name"
)

func WorkflowID(id string) attribute.KeyValue       { return workflowIDKey.String(id) }
func ExecutionID(id string) attribute.KeyValue      { return executionIDKey.String(id) }
func TriggeredBy(source string) attribute.KeyValue  { return triggeredByKey.String(source) }
func WebhookTriggerID(id string) attribute.KeyValue { return webhookTriggerIDKey.String(id) }
func EventName(name string) attribute.KeyValue      { return eventNameKey.String(name) }

// Step describes the step a span runs.
func Step(id, name, kind string) []attribute.KeyValue {
	return []attribute.KeyValue{stepIDKey.String(id), stepNameKey.String(name), stepKindKey.String(kind)}
}
