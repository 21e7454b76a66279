// Package services holds the workflow and execution use cases shared by the API and the CLI.
package services

import (
	"errors"
	"fmt"
	"strings"
)

// Rejections of caller input. None of them reach persistence.
var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInvalidStepTree = errors.New("invalid step tree")
	ErrInvalidTrigger  = errors.New("invalid trigger")
)

// ServiceError is a rejected request. Code is a stable reason such as INVALID_STEP_TREE.
type ServiceError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: code, Message: message, Err: err}
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidStepTree) ||
		errors.Is(err, ErrInvalidTrigger)
}

// ValidationCode returns the lower-cased Code of a ServiceError in err's chain,
// or "validation_error" when there is none.
func ValidationCode(err error) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) && serviceErr.Code != "" {
		return strings.ToLower(serviceErr.Code)
	}

	return "validation_error"
}
