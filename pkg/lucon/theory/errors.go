package theory

import (
	"errors"
	"fmt"
	"strings"

	luconErrors "github.com/MatthiasGr/trusted-connector/pkg/lucon/errors"
)

// ErrInvalidTheory is matched by every *InvalidTheoryError.
var ErrInvalidTheory = errors.New("invalid theory")

// InvalidTheoryError reports a policy source that cannot be loaded. The
// previously active theory stays in effect.
type InvalidTheoryError struct {
	// Source names the policy source, e.g. a file path.
	Source string

	// Problems lists every malformed or unusable clause.
	Problems *luconErrors.ErrorList

	// Cause is set for failures that are not clause problems, such as an
	// unreadable source.
	Cause error
}

// Error returns the error message.
func (e *InvalidTheoryError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid theory")
	if e.Source != "" {
		fmt.Fprintf(&sb, " %q", e.Source)
	}
	if e.Cause != nil {
		fmt.Fprintf(&sb, ": %v", e.Cause)
	}
	if e.Problems != nil && e.Problems.HasErrors() {
		sb.WriteString(": ")
		sb.WriteString(e.Problems.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *InvalidTheoryError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrInvalidTheory.
func (e *InvalidTheoryError) Is(target error) bool {
	return target == ErrInvalidTheory
}
