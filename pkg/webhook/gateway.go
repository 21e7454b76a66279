// Package webhook maps signed inbound HTTP calls to workflow executions.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/taskflow/pkg/engine"
	"github.com/dukex/taskflow/pkg/eventbus"
	"github.com/dukex/taskflow/pkg/events"
	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/otelhelper"
	"github.com/dukex/taskflow/pkg/persistence"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/trace"
)

// TriggeredBy tags executions started through a webhook trigger.
const TriggeredBy = "webhook"

// Executor starts workflow executions.
type Executor interface {
	Execute(ctx context.Context, workflowID string, input any, triggeredBy string) (*engine.Result, error)
}

type Gateway struct {
	triggers  persistence.WebhookTriggerRepository
	workflows persistence.WorkflowRepository
	executor  Executor
	publisher eventbus.EventPublisher
	baseURL   string
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewGateway wires a Gateway. publisher may be nil; baseURL prefixes trigger URLs.
func NewGateway(
	p persistence.Persistence,
	executor Executor,
	publisher eventbus.EventPublisher,
	baseURL string,
	logger *slog.Logger,
) *Gateway {
	return &Gateway{
		triggers:  p.WebhookTriggerRepository(),
		workflows: p.WorkflowRepository(),
		executor:  executor,
		publisher: publisher,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger.With("module", "webhook_gateway"),
		tracer:    otelhelper.Tracer(),
	}
}

type CreateTriggerRequest struct {
	WorkspaceID string         `json:"workspace_id" validate:"required"`
	WorkflowID  string         `json:"workflow_id"  validate:"required"`
	Name        string         `json:"name"         validate:"required,min=1,max=255"`
	CreatedBy   string         `json:"created_by"`
	JSONSchema  map[string]any `json:"json_schema"`
}

// CreateTrigger registers a trigger for an existing workflow with a random
// URL suffix and a random HMAC secret.
func (g *Gateway) CreateTrigger(ctx context.Context, req CreateTriggerRequest) (*models.WebhookTrigger, error) {
	if _, err := g.workflows.GetByID(ctx, req.WorkflowID); err != nil {
		return nil, err
	}

	if len(req.JSONSchema) > 0 {
		if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(req.JSONSchema)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
		}
	}

	secret, err := generateSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate webhook secret: %w", err)
	}

	now := time.Now().UTC()
	trigger := &models.WebhookTrigger{
		ID:          uuid.New().String(),
		WorkspaceID: req.WorkspaceID,
		WorkflowID:  req.WorkflowID,
		Name:        req.Name,
		URL:         strings.ReplaceAll(uuid.New().String(), "-", ""),
		Secret:      secret,
		Active:      true,
		JSONSchema:  req.JSONSchema,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := g.triggers.Save(ctx, trigger); err != nil {
		return nil, fmt.Errorf("failed to save webhook trigger: %w", err)
	}

	g.logger.InfoContext(ctx, "Webhook trigger created", "trigger_id", trigger.ID, "workflow_id", trigger.WorkflowID)

	return trigger, nil
}

// TriggerURL is the absolute URL external callers POST to.
func (g *Gateway) TriggerURL(trigger *models.WebhookTrigger) string {
	return g.baseURL + trigger.InboundPath()
}

func (g *Gateway) ListTriggers(ctx context.Context, workspaceID string) ([]*models.WebhookTrigger, error) {
	return g.triggers.ListByWorkspace(ctx, workspaceID)
}

func (g *Gateway) GetTrigger(ctx context.Context, id string) (*models.WebhookTrigger, error) {
	trigger, err := g.triggers.GetByID(ctx, id)
	if persistence.IsWebhookTriggerNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrTriggerNotFound, id)
	}

	return trigger, err
}

// SetActive enables or disables a trigger.
func (g *Gateway) SetActive(ctx context.Context, id string, active bool) (*models.WebhookTrigger, error) {
	trigger, err := g.triggers.SetActive(ctx, id, active)
	if persistence.IsWebhookTriggerNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrTriggerNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to update webhook trigger: %w", err)
	}

	return trigger, nil
}

// DeleteTrigger removes a trigger. The target workflow is left untouched.
func (g *Gateway) DeleteTrigger(ctx context.Context, id string) error {
	err := g.triggers.Delete(ctx, id)
	if persistence.IsWebhookTriggerNotFound(err) {
		return fmt.Errorf("%w: %s", ErrTriggerNotFound, id)
	}

	return err
}

// HandleInbound runs the trigger's workflow with the JSON payload as input.
//
// The trigger must exist and be active. A non-empty signature must be the hex
// HMAC-SHA256 of the payload under the trigger secret; an empty signature
// skips verification. Rejected calls leave the trigger counters untouched.
func (g *Gateway) HandleInbound(ctx context.Context, urlSuffix string, raw []byte, signature string) (*engine.Result, error) {
	ctx, span := otelhelper.StartSpan(ctx, g.tracer, "webhook.inbound")
	defer span.End()

	trigger, err := g.triggers.GetByURL(ctx, urlSuffix)
	if err != nil {
		if persistence.IsWebhookTriggerNotFound(err) {
			return nil, ErrTriggerNotFound
		}

		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to load webhook trigger: %w", err)
	}

	span.SetAttributes(
		otelhelper.WebhookTriggerID(trigger.ID),
		otelhelper.WorkflowID(trigger.WorkflowID),
	)

	logger := g.logger.With("trigger_id", trigger.ID, "workflow_id", trigger.WorkflowID)

	if !trigger.Active {
		return nil, ErrTriggerInactive
	}

	payload, err := decodePayload(raw)
	if err != nil {
		return nil, err
	}

	if signature != "" && !verifySignature(trigger.Secret, signature, raw, payload) {
		logger.WarnContext(ctx, "Rejected webhook call with invalid signature")

		return nil, ErrInvalidSignature
	}

	if trigger.HasJSONSchema() {
		if err := validateSchema(trigger.JSONSchema, payload); err != nil {
			return nil, err
		}
	}

	updated, err := g.triggers.RecordInvocation(ctx, trigger.ID, time.Now().UTC())
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to record webhook invocation: %w", err)
	}

	logger.InfoContext(ctx, "Webhook trigger invoked", "trigger_count", updated.TriggerCount)

	if g.publisher != nil {
		event := events.WebhookTriggerInvoked{
			BaseEvent:    events.NewBaseEvent(events.WebhookTriggerInvokedEvent, trigger.WorkflowID, ""),
			TriggerID:    trigger.ID,
			TriggerCount: updated.TriggerCount,
		}
		if err := g.publisher.Publish(ctx, trigger.WorkflowID, event); err != nil {
			logger.WarnContext(ctx, "Failed to publish webhook event", "error", err)
		}
	}

	return g.executor.Execute(ctx, trigger.WorkflowID, payload, TriggeredBy)
}

// decodePayload treats an empty body as an empty object.
func decodePayload(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return payload, nil
}

func validateSchema(schema map[string]any, payload any) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrPayloadSchema, strings.Join(messages, "; "))
	}

	return nil
}

// IsRejection reports whether err is a trigger error, raised before any execution starts.
func IsRejection(err error) bool {
	return errors.Is(err, ErrTriggerNotFound) ||
		errors.Is(err, ErrTriggerInactive) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrInvalidPayload) ||
		errors.Is(err, ErrPayloadSchema)
}
