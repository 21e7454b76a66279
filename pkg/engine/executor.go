// Package engine runs tree-shaped workflows: it walks steps, performs their
// side effects and records the outcome of each execution.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/otelhelper"
	"github.com/dukex/taskflow/pkg/template"
	"go.opentelemetry.io/otel/trace"
)

// maxChainDepth bounds nextStepId chains and nesting so a cyclic definition fails instead of overflowing.
const maxChainDepth = 1000

// Action types understood by action steps.
const (
	ActionCreateTask  = "create_task"
	ActionUpdateTask  = "update_task"
	ActionDeleteTask  = "delete_task"
	ActionSetVariable = "set_variable"
)

// Variables written by steps.
const (
	VariableCreatedTask     = "createdTask"
	VariableUpdatedTask     = "updatedTask"
	VariableWebhookResponse = "webhookResponse"
	conditionVariablePrefix = "condition_"
)

// DomainStore is the task and notification surface action and notification steps write to.
type DomainStore interface {
	CreateTask(ctx context.Context, fields models.TaskFields) (*models.Task, error)
	UpdateTask(ctx context.Context, id string, fields models.TaskFields) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
	CreateNotification(ctx context.Context, userID, title, message string) error
}

// Egress performs outbound JSON HTTP calls for webhook steps.
// Transport failures and non-2xx responses are errors.
type Egress interface {
	Request(ctx context.Context, url, method string, headers map[string]string, body any) (any, error)
}

// Executor runs steps against one execution context.
// Steps run strictly one after another; an Executor is safe to share between executions.
type Executor struct {
	store  DomainStore
	egress Egress
	logger *slog.Logger
	tracer trace.Tracer
}

func NewExecutor(store DomainStore, egress Egress, logger *slog.Logger) *Executor {
	return &Executor{
		store:  store,
		egress: egress,
		logger: logger.With("module", "step_executor"),
		tracer: otelhelper.Tracer(),
	}
}

// Run executes every top-level step in position order, stopping at the first failure.
func (e *Executor) Run(ctx context.Context, steps []*models.Step, executionCtx *models.ExecutionContext) error {
	tree := newStepTree(steps)

	for _, root := range tree.roots {
		if err := e.executeStep(ctx, tree, root, executionCtx, 0); err != nil {
			return err
		}
	}

	return nil
}

func (e *Executor) executeStep(ctx context.Context, tree *stepTree, step *models.Step, executionCtx *models.ExecutionContext, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth > maxChainDepth {
		return &StepError{StepID: step.ID, StepName: step.Name, StepKind: step.Kind, Err: ErrStepChainTooDeep}
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "step."+string(step.Kind),
		otelhelper.Step(step.ID, step.Name, string(step.Kind))...)
	defer span.End()

	logger := e.logger.With("step_id", step.ID, "step_kind", step.Kind)
	logger.DebugContext(ctx, "Executing step", "step_name", step.Name)

	executionCtx.Log(step, models.LogStatusStarted, "")

	if err := e.dispatch(ctx, tree, step, executionCtx, depth); err != nil {
		executionCtx.Log(step, models.LogStatusFailed, err.Error())
		otelhelper.SetError(span, err)
		logger.WarnContext(ctx, "Step failed", "error", err)

		var stepErr *StepError
		if errors.As(err, &stepErr) {
			return err
		}

		return &StepError{StepID: step.ID, StepName: step.Name, StepKind: step.Kind, Err: err}
	}

	executionCtx.Log(step, models.LogStatusCompleted, "")

	if step.NextStepID == nil || *step.NextStepID == "" {
		return nil
	}

	next, ok := tree.step(*step.NextStepID)
	if !ok {
		logger.DebugContext(ctx, "Next step not found, chain ends", "next_step_id", *step.NextStepID)

		return nil
	}

	return e.executeStep(ctx, tree, next, executionCtx, depth+1)
}

func (e *Executor) dispatch(ctx context.Context, tree *stepTree, step *models.Step, executionCtx *models.ExecutionContext, depth int) error {
	switch step.Kind {
	case models.StepKindAction:
		return e.executeAction(ctx, step, executionCtx)
	case models.StepKindCondition:
		return e.executeCondition(ctx, tree, step, executionCtx, depth)
	case models.StepKindLoop:
		return e.executeLoop(ctx, tree, step, executionCtx, depth)
	case models.StepKindDelay:
		return executeDelay(ctx, step)
	case models.StepKindWebhook:
		return e.executeWebhook(ctx, step, executionCtx)
	case models.StepKindNotification:
		return e.executeNotification(ctx, step, executionCtx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStepKind, step.Kind)
	}
}

func (e *Executor) executeAction(ctx context.Context, step *models.Step, executionCtx *models.ExecutionContext) error {
	actionType := step.ConfigString("actionType")

	switch actionType {
	case ActionCreateTask:
		task, err := e.store.CreateTask(ctx, taskFields(step.Config, executionCtx))
		if err != nil {
			return err
		}

		executionCtx.Variables[VariableCreatedTask] = toValue(task)
	case ActionUpdateTask:
		taskID := template.Stringify(template.Interpolate(step.Config["taskId"], executionCtx))
		if step.Config["taskId"] == nil || taskID == "" {
			return fmt.Errorf("%w: update_task requires taskId", ErrMissingConfig)
		}

		task, err := e.store.UpdateTask(ctx, taskID, taskFields(step.Config, executionCtx))
		if err != nil {
			return err
		}

		executionCtx.Variables[VariableUpdatedTask] = toValue(task)
	case ActionDeleteTask:
		taskID := template.Stringify(template.Interpolate(step.Config["taskId"], executionCtx))
		if step.Config["taskId"] == nil || taskID == "" {
			return fmt.Errorf("%w: delete_task requires taskId", ErrMissingConfig)
		}

		return e.store.DeleteTask(ctx, taskID)
	case ActionSetVariable:
		name := step.ConfigString("name")
		if name == "" {
			return fmt.Errorf("%w: set_variable requires name", ErrMissingConfig)
		}

		executionCtx.Variables[name] = template.Interpolate(step.Config["value"], executionCtx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownActionType, actionType)
	}

	return nil
}

// taskFields interpolates title and description; the other fields are taken as configured.
func taskFields(config map[string]any, executionCtx *models.ExecutionContext) models.TaskFields {
	interpolated := func(key string) *string {
		value, ok := template.Interpolate(config[key], executionCtx).(string)
		if !ok {
			return nil
		}

		return &value
	}

	raw := func(key string) *string {
		value, ok := config[key].(string)
		if !ok {
			return nil
		}

		return &value
	}

	return models.TaskFields{
		Title:       interpolated("title"),
		Description: interpolated("description"),
		Status:      raw("status"),
		Priority:    raw("priority"),
		ProjectID:   raw("projectId"),
		AssigneeID:  raw("assigneeId"),
	}
}

// toValue turns an entity into plain JSON data so later tokens can walk it.
func toValue(entity any) any {
	encoded, err := json.Marshal(entity)
	if err != nil {
		return entity
	}

	var value any
	if err := json.Unmarshal(encoded, &value); err != nil {
		return entity
	}

	return value
}

func (e *Executor) executeCondition(ctx context.Context, tree *stepTree, step *models.Step, executionCtx *models.ExecutionContext, depth int) error {
	left := template.Interpolate(step.Config["left"], executionCtx)
	right := template.Interpolate(step.Config["right"], executionCtx)

	result, err := Evaluate(step.ConfigString("operator"), left, right)
	if err != nil {
		return err
	}

	executionCtx.Variables[conditionVariablePrefix+step.ID] = result

	for _, child := range tree.childrenOf(step.ID) {
		if !branchMatches(child.Config["branch"], result) {
			continue
		}

		if err := e.executeStep(ctx, tree, child, executionCtx, depth+1); err != nil {
			return err
		}
	}

	return nil
}

func (e *Executor) executeLoop(ctx context.Context, tree *stepTree, step *models.Step, executionCtx *models.ExecutionContext, depth int) error {
	items, ok := asSlice(template.Resolve(step.Config["items"], executionCtx))
	if !ok || step.Config["items"] == nil {
		return fmt.Errorf("%w: step %s", ErrLoopItemsNotSequence, step.ID)
	}

	variableName := step.ConfigString("variableName")
	if variableName == "" {
		variableName = "item"
	}

	children := tree.childrenOf(step.ID)

	for _, item := range items {
		executionCtx.Variables[variableName] = item

		for _, child := range children {
			if err := e.executeStep(ctx, tree, child, executionCtx, depth+1); err != nil {
				return err
			}
		}
	}

	return nil
}

func executeDelay(ctx context.Context, step *models.Step) error {
	duration, err := delayDuration(step.Config["duration"])
	if err != nil {
		return err
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// delayDuration reads a millisecond count. A missing or negative value means no wait.
func delayDuration(value any) (time.Duration, error) {
	var millis float64

	switch v := value.(type) {
	case nil:
		return 0, nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid delay duration %q: %w", v, err)
		}

		millis = parsed
	default:
		n, ok := numeric(v)
		if !ok {
			return 0, fmt.Errorf("invalid delay duration %v", v)
		}

		millis = n
	}

	if millis <= 0 {
		return 0, nil
	}

	return time.Duration(millis * float64(time.Millisecond)), nil
}

func (e *Executor) executeWebhook(ctx context.Context, step *models.Step, executionCtx *models.ExecutionContext) error {
	url := step.ConfigString("url")
	if url == "" {
		return fmt.Errorf("%w: webhook requires url", ErrMissingConfig)
	}

	method := strings.ToUpper(step.ConfigString("method"))
	if method == "" {
		method = "POST"
	}

	headers := map[string]string{"Content-Type": "application/json"}

	if configured, ok := step.Config["headers"].(map[string]any); ok {
		for key, value := range configured {
			headers[key] = template.Stringify(value)
		}
	}

	response, err := e.egress.Request(ctx, url, method, headers, template.Interpolate(step.Config["body"], executionCtx))
	if err != nil {
		return err
	}

	executionCtx.Variables[VariableWebhookResponse] = response

	return nil
}

func (e *Executor) executeNotification(ctx context.Context, step *models.Step, executionCtx *models.ExecutionContext) error {
	userID := step.Config["userId"]
	if userID == nil {
		return fmt.Errorf("%w: notification requires userId", ErrMissingConfig)
	}

	title := template.InterpolateString(step.ConfigString("title"), executionCtx)
	message := template.InterpolateString(step.ConfigString("message"), executionCtx)

	return e.store.CreateNotification(ctx, template.Stringify(userID), title, message)
}
