package errors

import (
	"fmt"
	"strings"

	"github.com/MatthiasGr/trusted-connector/pkg/lucon/ast"
)

// ErrorType categorizes the type of error encountered while reading a theory.
type ErrorType string

const (
	ErrorTypeSyntax     ErrorType = "syntax"     // Malformed term or unbalanced structure
	ErrorTypeValidation ErrorType = "validation" // Well-formed but unusable clause
	ErrorTypeIO         ErrorType = "io"         // Reading the policy source failed
)

// Error represents a rich error with location, context, and suggestions.
type Error struct {
	Type       ErrorType    // Category of error
	Message    string       // Error message
	Location   ast.Location // Source location (line, column)
	Context    string       // Surrounding lines of source
	Suggestion string       // Suggested fix (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s", e.Type, e.Message))

	if e.Location.IsValid() {
		sb.WriteString(fmt.Sprintf("\n  --> %s", e.Location.String()))
	}

	if e.Context != "" {
		sb.WriteString("\n  |\n")
		sb.WriteString(strings.TrimRight(e.Context, "\n"))
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\n  = suggestion: %s", e.Suggestion))
	}

	return sb.String()
}

// NewSyntaxError creates a syntax error at the given location.
func NewSyntaxError(loc ast.Location, format string, args ...any) *Error {
	return &Error{
		Type:     ErrorTypeSyntax,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	}
}

// NewValidationError creates a validation error at the given location.
func NewValidationError(loc ast.Location, format string, args ...any) *Error {
	return &Error{
		Type:     ErrorTypeValidation,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	}
}

// ErrorList represents a collection of errors encountered while reading a
// theory. It allows reporting every bad clause instead of only the first one.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList creates a new empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*Error, 0),
	}
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *Error) {
	el.Errors = append(el.Errors, err)
}

// HasErrors returns true if the error list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors in the list.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// Error implements the error interface.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}
	if len(el.Errors) == 1 {
		return el.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("found %d error(s):\n", el.Count()))
	for i, err := range el.Errors {
		sb.WriteString(fmt.Sprintf("\nerror %d: ", i+1))
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

// ToError returns nil if the error list is empty, otherwise the list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// ByType returns all errors of the given type.
func (el *ErrorList) ByType(errType ErrorType) []*Error {
	var result []*Error
	for _, err := range el.Errors {
		if err.Type == errType {
			result = append(result, err)
		}
	}
	return result
}

// First returns the first error, or nil.
func (el *ErrorList) First() *Error {
	if len(el.Errors) == 0 {
		return nil
	}
	return el.Errors[0]
}
