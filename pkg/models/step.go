package models

// StepKind is the type of a step node.
type StepKind string

const (
	StepKindAction       StepKind = "action"
	StepKindCondition    StepKind = "condition"
	StepKindLoop         StepKind = "loop"
	StepKindDelay        StepKind = "delay"
	StepKindWebhook      StepKind = "webhook"
	StepKindNotification StepKind = "notification"
)

// Valid reports whether k is one of the known step kinds.
func (k StepKind) Valid() bool {
	switch k {
	case StepKindAction, StepKindCondition, StepKindLoop, StepKindDelay, StepKindWebhook, StepKindNotification:
		return true
	default:
		return false
	}
}

// HasChildren reports whether steps of this kind own child steps.
func (k StepKind) HasChildren() bool {
	return k == StepKindCondition || k == StepKindLoop
}

// Step is one node of a workflow's execution tree.
//
// Position is authoring order. ParentID is set only for children of condition
// and loop steps; those children are never entry points. NextStepID chains a
// successor that runs after this step succeeds.
type Step struct {
	ID         string         `json:"id"                     yaml:"id"`
	WorkflowID string         `json:"workflow_id,omitempty"  yaml:"-"`
	Name       string         `json:"name"                   yaml:"name"                   validate:"required"`
	Kind       StepKind       `json:"kind"                   yaml:"kind"                   validate:"required,oneof=action condition loop delay webhook notification"`
	Config     map[string]any `json:"config"                 yaml:"config"`
	Position   int            `json:"position"               yaml:"position"`
	ParentID   *string        `json:"parent_id,omitempty"    yaml:"parent_id,omitempty"`
	NextStepID *string        `json:"next_step_id,omitempty" yaml:"next_step_id,omitempty"`
}

// IsTopLevel reports whether the step is an entry point of the workflow.
func (s *Step) IsTopLevel() bool {
	return s.ParentID == nil || *s.ParentID == ""
}

// ConfigString returns a string config value, or "" when absent or not a string.
func (s *Step) ConfigString(key string) string {
	if s.Config == nil {
		return ""
	}

	v, _ := s.Config[key].(string)

	return v
}
