package store

import (
	"fmt"
	"log/slog"

	"github.com/MatthiasGr/trusted-connector/pkg/config"
)

// DriverMemory selects the in-memory store.
const DriverMemory = "memory"

// Open creates the store described by cfg. It returns a nil Store when
// history is disabled.
func Open(cfg *config.StoreConfig, logger *slog.Logger) (Store, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Driver {
	case DriverMemory:
		return NewMemoryStore(cfg.MaxVersions), nil
	case "", DriverModernc, DriverMattn:
		return NewSQLiteStore(&SQLiteConfig{
			Driver:      cfg.Driver,
			Path:        cfg.Path,
			MaxVersions: cfg.MaxVersions,
			BusyTimeout: cfg.BusyTimeout,
		}, logger)
	default:
		return nil, newStorageError(cfg.Driver, "open", fmt.Errorf("unsupported driver %q", cfg.Driver))
	}
}
