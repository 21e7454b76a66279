package models

import "time"

// ExecutionContext is the mutable state threaded through the steps of one execution.
// It is owned by a single in-flight execution and never shared.
type ExecutionContext struct {
	Input     any            `json:"input"`
	Variables map[string]any `json:"variables"`
	Logs      []LogEntry     `json:"logs"`
}

// NewExecutionContext returns a fresh context for the given input.
func NewExecutionContext(input any) *ExecutionContext {
	return &ExecutionContext{
		Input:     input,
		Variables: make(map[string]any),
		Logs:      make([]LogEntry, 0),
	}
}

// Log appends a log entry for the step.
func (c *ExecutionContext) Log(step *Step, status LogStatus, errMsg string) {
	c.Logs = append(c.Logs, LogEntry{
		Timestamp: time.Now().UTC(),
		StepID:    step.ID,
		StepName:  step.Name,
		StepKind:  step.Kind,
		Status:    status,
		Error:     errMsg,
	})
}

// Root returns the object interpolation paths are resolved against.
func (c *ExecutionContext) Root() map[string]any {
	logs := make([]any, 0, len(c.Logs))
	for _, entry := range c.Logs {
		logs = append(logs, map[string]any{
			"timestamp": entry.Timestamp.Format(time.RFC3339Nano),
			"step_id":   entry.StepID,
			"step_name": entry.StepName,
			"step_kind": string(entry.StepKind),
			"status":    string(entry.Status),
			"error":     entry.Error,
		})
	}

	return map[string]any{
		"input":     c.Input,
		"variables": c.Variables,
		"logs":      logs,
	}
}
