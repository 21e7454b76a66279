package otelhelper

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpanAndSetError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")

	_, span := StartSpan(t.Context(), tracer, "step", Step("a", "A", "action")...)
	SetError(span, nil)
	SetError(span, errors.New("boom"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "step", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
	assert.Contains(t, spans[0].Attributes(), attribute.String("taskflow.step.id", "a"))
	assert.Contains(t, spans[0].Attributes(), attribute.String("taskflow.step.kind", "action"))
	assert.Len(t, spans[0].Events(), 1)
}

func TestAttributeHelpers(t *testing.T) {
	assert.Equal(t, attribute.String("taskflow.workflow.id", "wf-1"), WorkflowID("wf-1"))
	assert.Equal(t, attribute.String("taskflow.execution.id", "ex-1"), ExecutionID("ex-1"))
	assert.Equal(t, attribute.String("taskflow.execution.triggered_by", "event"), TriggeredBy("event"))
	assert.Equal(t, attribute.String("taskflow.event.name", "task.created"), EventName("task.created"))
}
