package engine

import (
	"errors"

	"github.com/dukex/taskflow/pkg/models"
)

// Definition errors. They are raised where the workflow is misused and never retried.
var (
	ErrWorkflowUnavailable  = errors.New("workflow not found or inactive")
	ErrUnknownStepKind      = errors.New("unknown step kind")
	ErrUnknownActionType    = errors.New("unknown action type")
	ErrUnknownOperator      = errors.New("unknown condition operator")
	ErrLoopItemsNotSequence = errors.New("loop items must be an array")
	ErrMissingConfig        = errors.New("missing step configuration")
	ErrStepChainTooDeep     = errors.New("step chain too deep")
)

// Execution state errors.
var (
	ErrExecutionTerminal  = errors.New("execution already finished")
	ErrExecutionCancelled = errors.New("execution cancelled")
)

// StepError reports the step an execution failed at.
// Its message is the underlying error's message, so the error a caller sees
// matches the one stored on the Execution.
type StepError struct {
	StepID   string
	StepName string
	StepKind models.StepKind
	Err      error
}

func (e *StepError) Error() string {
	return e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// IsDefinitionError reports whether err comes from a malformed workflow rather than a side effect.
func IsDefinitionError(err error) bool {
	return errors.Is(err, ErrWorkflowUnavailable) ||
		errors.Is(err, ErrUnknownStepKind) ||
		errors.Is(err, ErrUnknownActionType) ||
		errors.Is(err, ErrUnknownOperator) ||
		errors.Is(err, ErrLoopItemsNotSequence) ||
		errors.Is(err, ErrMissingConfig)
}
