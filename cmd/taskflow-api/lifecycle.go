package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/taskflow/pkg/eventbus"
	"github.com/dukex/taskflow/pkg/events"
)

// watchLifecycle logs failed and cancelled executions published on the bus,
// including those from other processes when the bus is Kafka.
func watchLifecycle(ctx context.Context, logger *slog.Logger, bus eventbus.EventSubscriber) error {
	logger = logger.With("module", "lifecycle")

	err := bus.Handle(events.WorkflowExecutionFailedEvent, func(ctx context.Context, event any) error {
		if failed, ok := event.(*events.WorkflowExecutionFailed); ok {
			logger.WarnContext(ctx, "Workflow execution failed",
				"workflow_id", failed.WorkflowID,
				"execution_id", failed.ExecutionID,
				"step_id", failed.StepID,
				"error", failed.Error,
				"duration", failed.Duration)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to register failed-execution handler: %w", err)
	}

	err = bus.Handle(events.WorkflowExecutionCancelledEvent, func(ctx context.Context, event any) error {
		if cancelled, ok := event.(*events.WorkflowExecutionCancelled); ok {
			logger.InfoContext(ctx, "Workflow execution cancelled",
				"workflow_id", cancelled.WorkflowID,
				"execution_id", cancelled.ExecutionID,
				"reason", cancelled.Reason)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to register cancelled-execution handler: %w", err)
	}

	return bus.Subscribe(ctx)
}
