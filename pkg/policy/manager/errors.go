package manager

import (
	"errors"
	"fmt"
)

var (
	// ErrWatchDisabled is returned by Watch when neither file watching nor a
	// reload schedule is configured.
	ErrWatchDisabled = errors.New("policy watching is not enabled in configuration")

	// ErrWatchRunning is returned when Watch is called twice.
	ErrWatchRunning = errors.New("watch already started")

	// ErrNoStore is returned by history operations when no version store is
	// configured.
	ErrNoStore = errors.New("policy version store is not configured")

	// ErrNoPolicy is returned by the initial load when neither the source nor
	// the store provides a policy.
	ErrNoPolicy = errors.New("no policy available")
)

// LoadError represents an error that occurred while loading a policy.
// This includes file system errors such as "file not found" as well as
// theories the engine rejected.
type LoadError struct {
	// Source identifies the policy source (a path, or "api").
	Source string

	// Trigger is what caused the load.
	Trigger ReloadTrigger

	// Message describes the error
	Message string

	// Cause is the underlying error that caused this load error
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load policy %q (%s): %s: %v", e.Source, e.Trigger, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load policy %q (%s): %s", e.Source, e.Trigger, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}
