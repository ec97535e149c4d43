package manager

import (
	"context"
	"time"

	"github.com/MatthiasGr/trusted-connector/pkg/policy/store"
)

// PolicyManager is the main interface for policy management operations.
// It coordinates reading policy text, installing it into the engine,
// recording loaded versions, and hot-reload.
type PolicyManager interface {
	// LoadPolicies performs the initial load from the configured source.
	// Without a policy file it restores the latest stored version.
	LoadPolicies(ctx context.Context) error

	// ReloadPolicies reloads the policy from the configured source.
	// If the new text is rejected, the previous theory remains active.
	ReloadPolicies(ctx context.Context) error

	// ApplyPolicy installs policy text supplied directly (for example
	// through the HTTP API) and records it.
	ApplyPolicy(ctx context.Context, name, text string) (*store.Version, error)

	// RollbackToVersion re-installs a previously recorded version.
	RollbackToVersion(ctx context.Context, id string) (*store.Version, error)

	// GetPolicyVersion returns the version of the active theory.
	GetPolicyVersion() string

	// History lists recorded versions, newest first.
	History(ctx context.Context, limit int) ([]*store.Version, error)

	// Watch reloads the policy on file changes and on the configured
	// schedule. It blocks until the context is cancelled.
	Watch(ctx context.Context) error

	// Close performs cleanup and releases resources.
	Close() error
}

// ReloadTrigger names what caused a load.
type ReloadTrigger string

const (
	// TriggerStartup is the initial load.
	TriggerStartup ReloadTrigger = "startup"

	// TriggerFileChange is a reload after a file system event.
	TriggerFileChange ReloadTrigger = "file_change"

	// TriggerSchedule is a reload from the cron schedule.
	TriggerSchedule ReloadTrigger = "schedule"

	// TriggerAPI is a policy supplied directly.
	TriggerAPI ReloadTrigger = "api"

	// TriggerRollback is the re-installation of a recorded version.
	TriggerRollback ReloadTrigger = "rollback"

	// TriggerRestore is the restoration of the latest recorded version at
	// startup.
	TriggerRestore ReloadTrigger = "restore"
)

// Status describes the outcome of the most recent load attempts.
type Status struct {
	// Version is the active version, nil before the first successful load.
	Version *store.Version `json:"version,omitempty"`

	// LastLoadTime is the time of the last successful load.
	LastLoadTime time.Time `json:"last_load_time"`

	// LastError is the error of the last load attempt, empty if it succeeded.
	LastError string `json:"last_error,omitempty"`

	// Warnings are the load warnings of the active theory.
	Warnings []string `json:"warnings,omitempty"`
}
