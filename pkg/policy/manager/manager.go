package manager

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/MatthiasGr/trusted-connector/pkg/config"
	"github.com/MatthiasGr/trusted-connector/pkg/lucon/theory"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/engine"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/engine/source"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/store"
)

// DefaultPolicyManager is the default implementation of PolicyManager.
// It reads policy text from a source, installs it into the engine, and
// records every installed version in the store.
type DefaultPolicyManager struct {
	config *config.PolicyConfig
	engine *engine.Engine
	source source.Source
	store  store.Store
	logger *slog.Logger

	// loadMu serializes loads so that the recorded history follows the order
	// in which theories became active.
	loadMu sync.Mutex

	// State management
	mu            sync.RWMutex
	lastLoadTime  time.Time
	lastLoadError error
	current       *store.Version
	onInstall     func(*store.Version)

	// Watch management
	watchMu     sync.Mutex
	watchCancel context.CancelFunc
}

// NewPolicyManager creates a new policy manager. A nil source reads
// config.Path from disk; a nil store disables history.
func NewPolicyManager(
	cfg *config.PolicyConfig,
	eng *engine.Engine,
	src source.Source,
	st store.Store,
	logger *slog.Logger,
) (*DefaultPolicyManager, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if eng == nil {
		return nil, errors.New("engine cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if src == nil {
		src = source.NewFileSource(cfg.Path, logger)
	}

	return &DefaultPolicyManager{
		config: cfg,
		engine: eng,
		source: src,
		store:  st,
		logger: logger.With("component", "policy.manager"),
	}, nil
}

// OnInstall registers fn to run after every successful install, whatever
// triggered it.
func (m *DefaultPolicyManager) OnInstall(fn func(*store.Version)) *DefaultPolicyManager {
	m.mu.Lock()
	m.onInstall = fn
	m.mu.Unlock()
	return m
}

// NewEngineConfig derives the engine configuration from the policy section.
func NewEngineConfig(cfg *config.PolicyConfig) *engine.EngineConfig {
	ec := engine.DefaultEngineConfig()
	if cfg == nil {
		return ec
	}
	if cfg.LabelMode != "" {
		ec.WithLabelMode(engine.LabelMode(cfg.LabelMode))
	}
	if cfg.DecisionTimeout > 0 {
		ec.WithDecisionTimeout(cfg.DecisionTimeout)
	}
	if cfg.TransformationTimeout > 0 {
		ec.WithTransformationTimeout(cfg.TransformationTimeout)
	}
	if cfg.QueryTimeout > 0 {
		ec.WithQueryTimeout(cfg.QueryTimeout)
	}
	if cfg.MaxSolutions > 0 {
		ec.WithMaxSolutions(cfg.MaxSolutions)
	}
	return ec
}

// LoadPolicies performs the initial load. When the source has no policy
// file, the latest recorded version is restored instead.
func (m *DefaultPolicyManager) LoadPolicies(ctx context.Context) error {
	doc, err := m.source.Load(ctx)
	if err == nil {
		_, err = m.install(ctx, doc.Name, doc.Text, TriggerStartup)
		return err
	}

	if !errors.Is(err, fs.ErrNotExist) || m.store == nil {
		return m.fail(&LoadError{Source: m.source.Path(), Trigger: TriggerStartup, Message: "failed to read policy", Cause: err})
	}

	latest, serr := m.store.Latest(ctx)
	if serr != nil {
		if errors.Is(serr, store.ErrNotFound) {
			serr = ErrNoPolicy
		}
		return m.fail(&LoadError{
			Source:  m.source.Path(),
			Trigger: TriggerRestore,
			Message: "policy file missing and no stored version to restore",
			Cause:   errors.Join(err, serr),
		})
	}

	m.logger.Info("Policy file missing, restoring latest stored version",
		"path", m.source.Path(),
		"version", latest.ID,
		"loaded_at", latest.LoadedAt,
	)
	_, err = m.install(ctx, latest.Source, latest.Text, TriggerRestore)
	return err
}

// ReloadPolicies reloads the policy from the source. Unchanged text is not
// reloaded. On failure the previous theory stays active.
func (m *DefaultPolicyManager) ReloadPolicies(ctx context.Context) error {
	return m.reload(ctx, TriggerFileChange)
}

func (m *DefaultPolicyManager) reload(ctx context.Context, trigger ReloadTrigger) error {
	doc, err := m.source.Load(ctx)
	if err != nil {
		m.logger.Error("Failed to read policy, keeping previous policy",
			"path", m.source.Path(),
			"trigger", trigger,
			"error", err,
		)
		return m.fail(&LoadError{Source: m.source.Path(), Trigger: trigger, Message: "failed to read policy", Cause: err})
	}

	if m.unchanged(doc.Text) {
		m.logger.Debug("Policy unchanged, skipping reload", "path", doc.Name, "trigger", trigger)
		return nil
	}

	_, err = m.install(ctx, doc.Name, doc.Text, trigger)
	return err
}

// ApplyPolicy installs text supplied directly and records it.
func (m *DefaultPolicyManager) ApplyPolicy(ctx context.Context, name, text string) (*store.Version, error) {
	if name == "" {
		name = string(TriggerAPI)
	}
	return m.install(ctx, name, text, TriggerAPI)
}

// RollbackToVersion re-installs the text of a recorded version. The
// rollback is itself recorded as a new version.
func (m *DefaultPolicyManager) RollbackToVersion(ctx context.Context, id string) (*store.Version, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}

	v, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up version %q: %w", id, err)
	}

	m.logger.Info("Rolling back to stored version", "version", id, "loaded_at", v.LoadedAt)
	return m.install(ctx, v.Source, v.Text, TriggerRollback)
}

// ValidatePoliciesDryRun reads and validates the source without installing
// it. This is useful for linting policy files before deployment.
func (m *DefaultPolicyManager) ValidatePoliciesDryRun(ctx context.Context) (*theory.Snapshot, error) {
	doc, err := m.source.Load(ctx)
	if err != nil {
		return nil, &LoadError{Source: m.source.Path(), Trigger: TriggerStartup, Message: "failed to read policy", Cause: err}
	}
	snap, err := m.engine.ValidatePolicy(doc.Name, doc.Text)
	if err != nil {
		return nil, err
	}
	m.logger.Info("Dry-run validation successful",
		"path", doc.Name,
		"clauses", snap.Len(),
		"rules", len(snap.Rules()),
	)
	return snap, nil
}

// install loads text into the engine and records the new version.
func (m *DefaultPolicyManager) install(ctx context.Context, name, text string, trigger ReloadTrigger) (*store.Version, error) {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	start := time.Now()
	snap, err := m.engine.LoadPolicy(ctx, name, text)
	if err != nil {
		m.logger.Error("Policy rejected, keeping previous policy",
			"source", name,
			"trigger", trigger,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, m.fail(&LoadError{Source: name, Trigger: trigger, Message: "policy rejected", Cause: err})
	}

	v := &store.Version{
		ID:       snap.Version(),
		Checksum: snap.Checksum(),
		LoadedAt: snap.LoadedAt(),
		Source:   name,
		Rules:    len(snap.Rules()),
		Clauses:  snap.Len(),
		Text:     text,
	}

	if m.store != nil {
		// The theory is already active; a failed write only loses history.
		if err := m.store.Record(ctx, v); err != nil {
			m.logger.Warn("Failed to record policy version", "version", v.ID, "error", err)
		}
	}

	m.mu.Lock()
	m.current = v
	m.lastLoadTime = v.LoadedAt
	m.lastLoadError = nil
	hook := m.onInstall
	m.mu.Unlock()

	if hook != nil {
		hook(v)
	}

	m.logger.Info("Policy loaded successfully",
		"source", name,
		"trigger", trigger,
		"version", v.ID,
		"rules", v.Rules,
		"clauses", v.Clauses,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return v, nil
}

func (m *DefaultPolicyManager) fail(err *LoadError) error {
	m.mu.Lock()
	m.lastLoadError = err
	m.mu.Unlock()
	return err
}

func (m *DefaultPolicyManager) unchanged(text string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return false
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:]) == m.current.Checksum
}

// GetPolicyVersion returns the version of the active theory, or "" before
// the first successful load.
func (m *DefaultPolicyManager) GetPolicyVersion() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return ""
	}
	return m.current.ID
}

// CurrentVersion returns the active version, or nil before the first
// successful load.
func (m *DefaultPolicyManager) CurrentVersion() *store.Version {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	c := *m.current
	return &c
}

// Status reports the outcome of the recent loads.
func (m *DefaultPolicyManager) Status() *Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := &Status{LastLoadTime: m.lastLoadTime}
	if m.current != nil {
		c := *m.current
		c.Text = ""
		st.Version = &c
		st.Warnings = m.engine.Theory().Warnings()
	}
	if m.lastLoadError != nil {
		st.LastError = m.lastLoadError.Error()
	}
	return st
}

// History lists recorded versions, newest first.
func (m *DefaultPolicyManager) History(ctx context.Context, limit int) ([]*store.Version, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}
	return m.store.List(ctx, limit)
}

// Watch starts watching the policy source for changes and, when configured,
// reloads on the cron schedule. It blocks until the context is cancelled or
// Close is called.
func (m *DefaultPolicyManager) Watch(ctx context.Context) error {
	watchFiles := m.config.Watch && m.source.Path() != ""
	if !watchFiles && m.config.ReloadSchedule == "" {
		m.logger.Debug("Policy watching disabled in configuration")
		return ErrWatchDisabled
	}

	m.watchMu.Lock()
	if m.watchCancel != nil {
		m.watchMu.Unlock()
		return ErrWatchRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	m.watchCancel = cancel
	m.watchMu.Unlock()

	defer func() {
		m.watchMu.Lock()
		m.watchCancel = nil
		m.watchMu.Unlock()
		cancel()
	}()

	if m.config.ReloadSchedule != "" {
		sched := NewScheduler(m.config.ReloadSchedule, func(ctx context.Context) error {
			return m.reload(ctx, TriggerSchedule)
		}, m.logger)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	if !watchFiles {
		<-ctx.Done()
		return nil
	}

	watchConfig := DefaultFileWatcherConfig()
	watchConfig.Path = m.source.Path()
	if m.config.Debounce > 0 {
		watchConfig.DebounceInterval = m.config.Debounce
	}

	watcher, err := NewFileWatcher(watchConfig, m.logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	m.logger.Info("Starting policy watcher", "path", watchConfig.Path)

	errCh := make(chan error, 1)
	go func() {
		errCh <- watcher.Watch(ctx, func() error {
			return m.reload(ctx, TriggerFileChange)
		})
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil {
			m.logger.Error("File watcher error", "error", err)
		}
	}

	if stopErr := watcher.Stop(); stopErr != nil {
		m.logger.Error("Failed to stop file watcher", "error", stopErr)
		if err == nil {
			err = stopErr
		}
	}
	return err
}

// GetLastLoadTime returns the timestamp of the last successful load.
func (m *DefaultPolicyManager) GetLastLoadTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastLoadTime
}

// GetLastLoadError returns the error from the last load attempt.
func (m *DefaultPolicyManager) GetLastLoadError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastLoadError
}

// Close stops watching. The engine and store are owned by the caller.
func (m *DefaultPolicyManager) Close() error {
	m.watchMu.Lock()
	if m.watchCancel != nil {
		m.watchCancel()
	}
	m.watchMu.Unlock()

	m.logger.Info("Policy manager closed")
	return nil
}
