package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested version does not exist.
var ErrNotFound = errors.New("policy version not found")

// Version is one successfully loaded policy.
type Version struct {
	// ID is the theory version identifier assigned at load time.
	ID string `json:"id"`

	// Checksum is the hex SHA-256 of Text.
	Checksum string `json:"checksum"`

	// LoadedAt is when the policy became active.
	LoadedAt time.Time `json:"loaded_at"`

	// Source names where the policy text came from.
	Source string `json:"source"`

	// Rules is the number of rule/1 declarations.
	Rules int `json:"rules"`

	// Clauses is the number of clauses in the theory.
	Clauses int `json:"clauses"`

	// Text is the policy source.
	Text string `json:"text,omitempty"`
}

// Store persists the history of loaded policies.
type Store interface {
	// Record appends a version and prunes the oldest versions beyond the
	// configured limit.
	Record(ctx context.Context, v *Version) error

	// Latest returns the most recently recorded version or ErrNotFound.
	Latest(ctx context.Context) (*Version, error)

	// Get returns the version with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Version, error)

	// List returns up to limit versions, newest first, without their text.
	// A limit of zero or less lists every version.
	List(ctx context.Context, limit int) ([]*Version, error)

	// Close releases the resources held by the store.
	Close() error
}

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "sqlite3", "memory")
	Operation string // Operation that failed ("open", "record", "latest", ...)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

func newStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}
