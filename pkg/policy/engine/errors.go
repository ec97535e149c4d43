package engine

import (
	"errors"
	"fmt"

	"github.com/MatthiasGr/trusted-connector/pkg/lucon/theory"
)

// Common sentinel errors
var (
	// ErrInvalidConfig indicates invalid engine configuration.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrEngineClosed is returned by operations on a closed engine.
	ErrEngineClosed = errors.New("engine closed")

	// ErrInvalidTheory matches every *InvalidTheoryError.
	ErrInvalidTheory = theory.ErrInvalidTheory
)

// InvalidTheoryError reports a policy that cannot be loaded. The previously
// loaded policy stays in effect.
type InvalidTheoryError = theory.InvalidTheoryError

// MalformedGoalError indicates that the text of a diagnostic query does not
// parse as a goal.
type MalformedGoalError struct {
	Goal  string
	Cause error
}

// Error returns the error message.
func (e *MalformedGoalError) Error() string {
	return fmt.Sprintf("malformed goal %q: %v", e.Goal, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *MalformedGoalError) Unwrap() error {
	return e.Cause
}

// TimeoutError indicates an evaluation exceeded its timeout.
type TimeoutError struct {
	Operation string
	Cause     error
}

// Error returns the error message.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}
