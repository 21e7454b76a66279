package models

import "time"

// WebhookTrigger maps an externally reachable URL suffix to a workflow.
type WebhookTrigger struct {
	ID            string         `json:"id"`
	WorkspaceID   string         `json:"workspace_id"`
	WorkflowID    string         `json:"workflow_id"`
	Name          string         `json:"name"`
	URL           string         `json:"url"` // Random suffix used in the inbound path
	Secret        string         `json:"secret"`
	Active        bool           `json:"active"`
	JSONSchema    map[string]any `json:"json_schema,omitempty"`
	LastTriggered *time.Time     `json:"last_triggered,omitempty"`
	TriggerCount  int64          `json:"trigger_count"`
	CreatedBy     string         `json:"created_by,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// HasJSONSchema reports whether inbound payloads must match a schema.
func (t *WebhookTrigger) HasJSONSchema() bool {
	return len(t.JSONSchema) > 0
}

// InboundPath returns the path external callers POST to.
func (t *WebhookTrigger) InboundPath() string {
	return "/workflows/webhooks/" + t.URL + "/trigger"
}
