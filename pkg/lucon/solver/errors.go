package solver

import (
	"errors"
	"fmt"
)

// Error classes raised by builtin evaluation. An EvalError unwraps to one of
// them.
var (
	// ErrInstantiation indicates an argument was unbound where a value was required.
	ErrInstantiation = errors.New("instantiation error")

	// ErrType indicates an argument had the wrong type.
	ErrType = errors.New("type error")

	// ErrEvaluation indicates an arithmetic evaluation failure such as division by zero.
	ErrEvaluation = errors.New("evaluation error")

	// ErrInvalidPattern indicates a regular expression that does not compile.
	ErrInvalidPattern = errors.New("invalid pattern")
)

// EvalError is a builtin evaluation failure. It is contained to the search
// branch that raised it: the branch fails and the search continues.
type EvalError struct {
	Kind      error
	Predicate string
	Message   string
}

// Error returns the error message.
func (e *EvalError) Error() string {
	if e.Predicate == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %v: %s", e.Predicate, e.Kind, e.Message)
}

// Unwrap returns the error class.
func (e *EvalError) Unwrap() error {
	return e.Kind
}

func instantiationErr(format string, args ...any) *EvalError {
	return &EvalError{Kind: ErrInstantiation, Message: fmt.Sprintf(format, args...)}
}

func typeErr(format string, args ...any) *EvalError {
	return &EvalError{Kind: ErrType, Message: fmt.Sprintf(format, args...)}
}

func evalErr(format string, args ...any) *EvalError {
	return &EvalError{Kind: ErrEvaluation, Message: fmt.Sprintf(format, args...)}
}
