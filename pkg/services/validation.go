package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// ValidateSteps checks that steps form a tree the engine can run.
// Steps without an id get a generated one.
func ValidateSteps(steps []*models.Step) error {
	byID := make(map[string]*models.Step, len(steps))

	for i, step := range steps {
		if step == nil {
			return stepTreeError(fmt.Sprintf("step %d is empty", i))
		}

		if step.ID == "" {
			step.ID = uuid.New().String()
		}

		if _, exists := byID[step.ID]; exists {
			return stepTreeError(fmt.Sprintf("duplicate step id %q", step.ID))
		}

		if !step.Kind.Valid() {
			return stepTreeError(fmt.Sprintf("step %q has unknown kind %q", step.ID, step.Kind))
		}

		byID[step.ID] = step
	}

	for _, step := range steps {
		if !step.IsTopLevel() {
			parent, ok := byID[*step.ParentID]
			if !ok {
				return stepTreeError(fmt.Sprintf("step %q references unknown parent %q", step.ID, *step.ParentID))
			}

			if !parent.Kind.HasChildren() {
				return stepTreeError(fmt.Sprintf("step %q has parent %q of kind %s, only condition and loop steps have children", step.ID, parent.ID, parent.Kind))
			}
		}

		if step.NextStepID != nil && *step.NextStepID != "" {
			if _, ok := byID[*step.NextStepID]; !ok {
				return stepTreeError(fmt.Sprintf("step %q references unknown next step %q", step.ID, *step.NextStepID))
			}
		}
	}

	if cycle := findCycle(steps); cycle != "" {
		return stepTreeError("cycle through step " + cycle)
	}

	return nil
}

// findCycle follows parent->child and step->next edges and returns a step on a cycle.
func findCycle(steps []*models.Step) string {
	edges := make(map[string][]string, len(steps))

	for _, step := range steps {
		if !step.IsTopLevel() {
			edges[*step.ParentID] = append(edges[*step.ParentID], step.ID)
		}

		if step.NextStepID != nil && *step.NextStepID != "" {
			edges[step.ID] = append(edges[step.ID], *step.NextStepID)
		}
	}

	const (
		unvisited = iota
		visiting
		visited
	)

	state := make(map[string]int, len(steps))

	var visit func(id string) string
	visit = func(id string) string {
		switch state[id] {
		case visiting:
			return id
		case visited:
			return ""
		}

		state[id] = visiting

		for _, next := range edges[id] {
			if found := visit(next); found != "" {
				return found
			}
		}

		state[id] = visited

		return ""
	}

	for _, step := range steps {
		if state[step.ID] == unvisited {
			if found := visit(step.ID); found != "" {
				return found
			}
		}
	}

	return ""
}

// ValidateTrigger checks the fields each trigger type needs.
func ValidateTrigger(trigger models.TriggerDescriptor) error {
	switch trigger.Type {
	case models.TriggerTypeManual, models.TriggerTypeWebhook:
		return nil
	case models.TriggerTypeScheduled:
		if strings.TrimSpace(trigger.Cron) == "" {
			return triggerError("scheduled trigger requires a cron expression")
		}

		if _, err := cron.ParseStandard(trigger.Cron); err != nil {
			return triggerError(fmt.Sprintf("invalid cron expression %q: %v", trigger.Cron, err))
		}

		return nil
	case models.TriggerTypeEvent:
		if strings.TrimSpace(trigger.Event) == "" {
			return triggerError("event trigger requires an event name")
		}

		return nil
	default:
		return triggerError(fmt.Sprintf("unknown trigger type %q", trigger.Type))
	}
}

// validationMessage flattens validator errors into one readable line.
func validationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	parts := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fieldErr.Namespace(), fieldErr.Tag()))
	}

	return strings.Join(parts, "; ")
}

func stepTreeError(message string) error {
	return NewValidationError("ValidateSteps", "INVALID_STEP_TREE", message, ErrInvalidStepTree)
}

func triggerError(message string) error {
	return NewValidationError("ValidateTrigger", "INVALID_TRIGGER", message, ErrInvalidTrigger)
}
