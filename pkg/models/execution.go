package models

import "time"

// ExecutionStatus is the lifecycle state of an Execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// IsTerminal reports whether no further transition may leave this status.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// LogStatus is the status carried by an execution log entry.
type LogStatus string

const (
	LogStatusStarted   LogStatus = "started"
	LogStatusCompleted LogStatus = "completed"
	LogStatusFailed    LogStatus = "failed"
)

// LogEntry records one step transition inside an execution.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	StepID    string    `json:"step_id"`
	StepName  string    `json:"step_name"`
	StepKind  StepKind  `json:"step_kind"`
	Status    LogStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
}

// Execution is one run of a Workflow.
type Execution struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflow_id"`
	Status      ExecutionStatus `json:"status"`
	Input       any             `json:"input,omitempty"`
	Output      map[string]any  `json:"output"`
	Logs        []LogEntry      `json:"logs"`
	Error       string          `json:"error,omitempty"`
	TriggeredBy string          `json:"triggered_by"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Finish moves a running execution to a terminal status.
func (e *Execution) Finish(status ExecutionStatus, at time.Time) {
	e.Status = status
	e.CompletedAt = &at
}
