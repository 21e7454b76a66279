// Package models defines the core domain models for tree-shaped workflow automation.
package models

import "time"

// TriggerType identifies how a workflow is started.
type TriggerType string

const (
	TriggerTypeManual    TriggerType = "manual"
	TriggerTypeWebhook   TriggerType = "webhook"
	TriggerTypeScheduled TriggerType = "scheduled" // Stored and validated, never fired by the runtime
	TriggerTypeEvent     TriggerType = "event"
)

// TriggerDescriptor describes the entry point of a workflow.
type TriggerDescriptor struct {
	Type   TriggerType    `json:"type"             yaml:"type"             validate:"required,oneof=manual webhook scheduled event"`
	Cron   string         `json:"cron,omitempty"   yaml:"cron,omitempty"`   // Only for scheduled triggers
	Event  string         `json:"event,omitempty"  yaml:"event,omitempty"`  // Only for event triggers
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"` // Free-form extra settings
}

// Workflow is a named, versioned automation definition made of Steps.
type Workflow struct {
	ID          string            `json:"id"`
	WorkspaceID string            `json:"workspace_id" validate:"required"`
	Name        string            `json:"name"         validate:"required,min=1"`
	Description string            `json:"description"`
	Icon        string            `json:"icon,omitempty"`
	Color       string            `json:"color,omitempty"`
	Trigger     TriggerDescriptor `json:"trigger"`
	Active      bool              `json:"active"`
	Version     int               `json:"version"`
	Steps       []*Step           `json:"steps"`
	CreatedBy   string            `json:"created_by,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ReplaceSteps swaps the whole step set and bumps the version.
// Steps are never patched one by one.
func (w *Workflow) ReplaceSteps(steps []*Step) {
	for _, step := range steps {
		step.WorkflowID = w.ID
	}

	w.Steps = steps
	w.Version++
}
