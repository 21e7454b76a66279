package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/taskflow/pkg/eventbus"
	"github.com/dukex/taskflow/pkg/events"
	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/otelhelper"
	"github.com/dukex/taskflow/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Config tunes the Controller.
type Config struct {
	// PreserveLogsOnFailure keeps the step logs on failed executions.
	// When false a failed execution is stored with an empty log.
	PreserveLogsOnFailure bool
}

// Result is what a finished execution hands back to its caller.
type Result struct {
	ExecutionID string         `json:"execution_id"`
	Output      map[string]any `json:"output"`
}

// Controller starts executions, drives the Executor over a workflow's steps
// and owns the single terminal transition of every execution record.
type Controller struct {
	workflows  persistence.WorkflowRepository
	executions persistence.ExecutionRepository
	executor   *Executor
	publisher  eventbus.EventPublisher
	config     Config
	logger     *slog.Logger
	tracer     trace.Tracer

	mu      sync.Mutex
	running map[string]*run
}

// run tracks an execution in flight in this process.
// mu serializes the terminal write between the run itself and Cancel.
type run struct {
	mu        sync.Mutex
	cancel    context.CancelFunc
	finished  bool
	cancelled bool
}

// NewController wires a Controller. publisher may be nil.
func NewController(
	p persistence.Persistence,
	executor *Executor,
	publisher eventbus.EventPublisher,
	config Config,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		workflows:  p.WorkflowRepository(),
		executions: p.ExecutionRepository(),
		executor:   executor,
		publisher:  publisher,
		config:     config,
		logger:     logger.With("module", "execution_controller"),
		tracer:     otelhelper.Tracer(),
		running:    make(map[string]*run),
	}
}

// Execute runs a workflow to completion and returns its output.
//
// A missing or inactive workflow fails with ErrWorkflowUnavailable before any
// execution record exists. Any step failure marks the execution failed and is
// returned with the same message stored on the record. An execution cancelled
// while it ran returns ErrExecutionCancelled and keeps its cancelled record.
func (c *Controller) Execute(ctx context.Context, workflowID string, input any, triggeredBy string) (*Result, error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "workflow.execute",
		otelhelper.WorkflowID(workflowID),
		otelhelper.TriggeredBy(triggeredBy),
	)
	defer span.End()

	workflow, err := c.workflows.GetByID(ctx, workflowID)
	if err != nil && !persistence.IsWorkflowNotFound(err) {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to load workflow %s: %w", workflowID, err)
	}

	if workflow == nil || !workflow.Active {
		span.SetAttributes(attribute.Bool("taskflow.workflow.available", false))

		return nil, ErrWorkflowUnavailable
	}

	if triggeredBy == "" {
		triggeredBy = "manual"
	}

	execution := &models.Execution{
		ID:          uuid.New().String(),
		WorkflowID:  workflow.ID,
		Status:      models.ExecutionStatusRunning,
		Input:       input,
		Logs:        make([]models.LogEntry, 0),
		TriggeredBy: triggeredBy,
		StartedAt:   time.Now().UTC(),
	}

	span.SetAttributes(otelhelper.ExecutionID(execution.ID))

	logger := c.logger.With("workflow_id", workflow.ID, "execution_id", execution.ID)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Registered before the record is written so Cancel always finds the run.
	current := c.register(execution.ID, cancel)
	defer c.unregister(execution.ID)

	if err := c.executions.Save(ctx, execution); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to create execution: %w", err)
	}

	logger.InfoContext(ctx, "Starting workflow execution", "triggered_by", triggeredBy, "steps", len(workflow.Steps))
	c.publish(ctx, workflow.ID, events.WorkflowExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.WorkflowExecutionStartedEvent, workflow.ID, execution.ID),
		TriggeredBy: triggeredBy,
		Input:       input,
	})

	executionCtx := models.NewExecutionContext(input)
	runErr := c.executor.Run(runCtx, workflow.Steps, executionCtx)

	current.mu.Lock()
	defer current.mu.Unlock()

	current.finished = true

	// The record is written even if the caller's context is gone.
	finalCtx := context.WithoutCancel(ctx)

	if current.cancelled {
		logger.InfoContext(ctx, "Workflow execution was cancelled")

		return nil, ErrExecutionCancelled
	}

	completedAt := time.Now().UTC()

	if runErr != nil {
		return nil, c.fail(finalCtx, logger, span, execution, executionCtx, runErr, completedAt)
	}

	execution.Finish(models.ExecutionStatusCompleted, completedAt)
	execution.Output = executionCtx.Variables
	execution.Logs = executionCtx.Logs

	if err := c.executions.FinishRunning(finalCtx, execution); err != nil {
		if persistence.IsExecutionNotRunning(err) {
			logger.InfoContext(ctx, "Workflow execution was cancelled before completion was recorded")

			return nil, ErrExecutionCancelled
		}

		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to complete execution %s: %w", execution.ID, err)
	}

	logger.InfoContext(ctx, "Workflow execution completed", "duration", completedAt.Sub(execution.StartedAt))
	c.publish(finalCtx, workflow.ID, events.WorkflowExecutionCompleted{
		BaseEvent: events.NewBaseEvent(events.WorkflowExecutionCompletedEvent, workflow.ID, execution.ID),
		Output:    execution.Output,
		Duration:  completedAt.Sub(execution.StartedAt),
	})

	return &Result{ExecutionID: execution.ID, Output: execution.Output}, nil
}

func (c *Controller) fail(
	ctx context.Context,
	logger *slog.Logger,
	span trace.Span,
	execution *models.Execution,
	executionCtx *models.ExecutionContext,
	runErr error,
	completedAt time.Time,
) error {
	otelhelper.SetError(span, runErr)

	execution.Finish(models.ExecutionStatusFailed, completedAt)
	execution.Error = runErr.Error()
	execution.Logs = make([]models.LogEntry, 0)

	if c.config.PreserveLogsOnFailure {
		execution.Logs = executionCtx.Logs
	}

	if err := c.executions.FinishRunning(ctx, execution); err != nil {
		if persistence.IsExecutionNotRunning(err) {
			logger.InfoContext(ctx, "Workflow execution was cancelled before the failure was recorded", "error", runErr)

			return ErrExecutionCancelled
		}

		logger.ErrorContext(ctx, "Failed to record execution failure", "error", err)
	}

	var stepID string

	var stepErr *StepError
	if errors.As(runErr, &stepErr) {
		stepID = stepErr.StepID
	}

	logger.ErrorContext(ctx, "Workflow execution failed", "error", runErr, "step_id", stepID)
	c.publish(ctx, execution.WorkflowID, events.WorkflowExecutionFailed{
		BaseEvent: events.NewBaseEvent(events.WorkflowExecutionFailedEvent, execution.WorkflowID, execution.ID),
		Error:     execution.Error,
		StepID:    stepID,
		Duration:  completedAt.Sub(execution.StartedAt),
	})

	return runErr
}

// Cancel moves a running execution to cancelled.
//
// An execution running in this process is also interrupted: no further step
// starts and a pending delay returns early. In-flight I/O of the current step
// is not preempted. Cancelling a finished execution fails with ErrExecutionTerminal.
func (c *Controller) Cancel(ctx context.Context, executionID string) (*models.Execution, error) {
	c.mu.Lock()
	current, isRunning := c.running[executionID]
	c.mu.Unlock()

	if isRunning {
		current.mu.Lock()
		defer current.mu.Unlock()

		if current.finished {
			isRunning = false
		}
	}

	execution, err := c.executions.GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrExecutionTerminal, executionID, execution.Status)
	}

	execution.Finish(models.ExecutionStatusCancelled, time.Now().UTC())

	if err := c.executions.FinishRunning(ctx, execution); err != nil {
		if persistence.IsExecutionNotRunning(err) {
			return nil, fmt.Errorf("%w: %s", ErrExecutionTerminal, executionID)
		}

		return nil, fmt.Errorf("failed to cancel execution %s: %w", executionID, err)
	}

	if isRunning {
		current.cancelled = true
		current.cancel()
	}

	c.logger.InfoContext(ctx, "Workflow execution cancelled", "execution_id", executionID, "workflow_id", execution.WorkflowID, "interrupted", isRunning)
	c.publish(ctx, execution.WorkflowID, events.WorkflowExecutionCancelled{
		BaseEvent: events.NewBaseEvent(events.WorkflowExecutionCancelledEvent, execution.WorkflowID, execution.ID),
		Reason:    "cancel requested",
	})

	return execution, nil
}

// Running reports whether the execution is in flight in this process.
func (c *Controller) Running(executionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.running[executionID]

	return ok
}

func (c *Controller) register(executionID string, cancel context.CancelFunc) *run {
	current := &run{cancel: cancel}

	c.mu.Lock()
	c.running[executionID] = current
	c.mu.Unlock()

	return current
}

func (c *Controller) unregister(executionID string) {
	c.mu.Lock()
	delete(c.running, executionID)
	c.mu.Unlock()
}

func (c *Controller) publish(ctx context.Context, key string, event eventbus.Event) {
	if c.publisher == nil {
		return
	}

	if err := c.publisher.Publish(ctx, key, event); err != nil {
		c.logger.WarnContext(ctx, "Failed to publish lifecycle event", "event_type", event.GetType(), "error", err)
	}
}
