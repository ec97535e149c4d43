package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // driver "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // driver "sqlite" (pure Go)
)

// Supported database/sql driver names.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

var errMissingID = errors.New("version has no id")

// SQLiteConfig contains configuration for the SQLite store.
type SQLiteConfig struct {
	// Driver selects the database/sql driver: DriverModernc or DriverMattn.
	// Default: DriverModernc
	Driver string

	// Path is the database file path.
	Path string

	// MaxVersions is the number of versions kept; older ones are pruned.
	// Zero keeps every version.
	MaxVersions int

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Driver:      DriverModernc,
		Path:        "data/policies.db",
		MaxVersions: 50,
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteStore persists the policy history in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if necessary) the database at config.Path
// and initializes its schema.
func NewSQLiteStore(config *SQLiteConfig, logger *slog.Logger) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverModernc
	}
	if config.Driver != DriverModernc && config.Driver != DriverMattn {
		return nil, newStorageError(config.Driver, "open", fmt.Errorf("unsupported driver %q", config.Driver))
	}
	if config.Path == "" {
		return nil, newStorageError(config.Driver, "open", errors.New("db path cannot be empty"))
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "policy.store.sqlite")

	if dir := filepath.Dir(config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, newStorageError(config.Driver, "open", err)
		}
	}

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, newStorageError(config.Driver, "open", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db, config: config, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite policy store initialized",
		"driver", config.Driver,
		"path", config.Path,
		"max_versions", config.MaxVersions,
	)
	return s, nil
}

// initialize sets pragmas and creates the schema.
func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return newStorageError(s.config.Driver, "enable_wal", err)
	}

	busyTimeout := s.config.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeout.Milliseconds())); err != nil {
		return newStorageError(s.config.Driver, "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return newStorageError(s.config.Driver, "create_schema", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return newStorageError(s.config.Driver, "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return newStorageError(s.config.Driver, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return newStorageError(s.config.Driver, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Record inserts v and prunes versions beyond MaxVersions in one transaction.
func (s *SQLiteStore) Record(ctx context.Context, v *Version) error {
	if v == nil || v.ID == "" {
		return newStorageError(s.config.Driver, "record", errMissingID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return newStorageError(s.config.Driver, "begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertVersion,
		v.ID, v.Checksum, v.LoadedAt.UnixNano(), v.Source, v.Rules, v.Clauses, v.Text,
	); err != nil {
		return newStorageError(s.config.Driver, "record", err)
	}

	if s.config.MaxVersions > 0 {
		res, err := tx.ExecContext(ctx, pruneVersions, s.config.MaxVersions)
		if err != nil {
			return newStorageError(s.config.Driver, "prune", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.logger.Debug("pruned policy versions", "count", n)
		}
	}

	if err := tx.Commit(); err != nil {
		return newStorageError(s.config.Driver, "commit", err)
	}
	return nil
}

// Latest returns the most recently recorded version.
func (s *SQLiteStore) Latest(ctx context.Context) (*Version, error) {
	v, err := scanVersion(s.db.QueryRowContext(ctx, selectLatest))
	if err != nil {
		return nil, s.wrapLookup("latest", err)
	}
	return v, nil
}

// Get returns the version with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Version, error) {
	v, err := scanVersion(s.db.QueryRowContext(ctx, selectByID, id))
	if err != nil {
		return nil, s.wrapLookup("get", err)
	}
	return v, nil
}

// List returns versions newest first without their text.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*Version, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, selectList, limit)
	if err != nil {
		return nil, newStorageError(s.config.Driver, "list", err)
	}
	defer rows.Close()

	out := make([]*Version, 0)
	for rows.Next() {
		var v Version
		var loadedAt int64
		if err := rows.Scan(&v.ID, &v.Checksum, &loadedAt, &v.Source, &v.Rules, &v.Clauses); err != nil {
			return nil, newStorageError(s.config.Driver, "list", err)
		}
		v.LoadedAt = time.Unix(0, loadedAt)
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError(s.config.Driver, "list", err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return newStorageError(s.config.Driver, "close", err)
	}
	return nil
}

func (s *SQLiteStore) wrapLookup(operation string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return newStorageError(s.config.Driver, operation, err)
}

func scanVersion(row *sql.Row) (*Version, error) {
	var v Version
	var loadedAt int64
	if err := row.Scan(&v.ID, &v.Checksum, &loadedAt, &v.Source, &v.Rules, &v.Clauses, &v.Text); err != nil {
		return nil, err
	}
	v.LoadedAt = time.Unix(0, loadedAt)
	return &v, nil
}
