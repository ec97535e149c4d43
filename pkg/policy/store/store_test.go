package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MatthiasGr/trusted-connector/pkg/config"
)

func newVersion(i int) *Version {
	return &Version{
		ID:       fmt.Sprintf("v%d", i),
		Checksum: fmt.Sprintf("sum%d", i),
		LoadedAt: time.Unix(1700000000+int64(i), 0),
		Source:   "policy.pl",
		Rules:    i,
		Clauses:  i * 2,
		Text:     fmt.Sprintf("rule(r%d).\n", i),
	}
}

// backends returns each store implementation with the given version limit.
func backends(t *testing.T, maxVersions int) map[string]Store {
	t.Helper()
	out := map[string]Store{
		"memory": NewMemoryStore(maxVersions),
	}
	for _, driver := range []string{DriverModernc, DriverMattn} {
		s, err := NewSQLiteStore(&SQLiteConfig{
			Driver:      driver,
			Path:        filepath.Join(t.TempDir(), "policies.db"),
			MaxVersions: maxVersions,
		}, nil)
		if err != nil {
			if strings.Contains(err.Error(), "CGO_ENABLED") || strings.Contains(err.Error(), "cgo") {
				t.Logf("skipping driver %s: %v", driver, err)
				continue
			}
			t.Fatalf("NewSQLiteStore(%s) error = %v", driver, err)
		}
		out[driver] = s
	}
	for _, s := range out {
		t.Cleanup(func() { s.Close() })
	}
	return out
}

func TestStore_RecordAndLatest(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t, 0) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Latest(ctx); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Latest() on empty store error = %v, want ErrNotFound", err)
			}

			for i := 1; i <= 3; i++ {
				if err := s.Record(ctx, newVersion(i)); err != nil {
					t.Fatalf("Record(%d) error = %v", i, err)
				}
			}

			latest, err := s.Latest(ctx)
			if err != nil {
				t.Fatalf("Latest() error = %v", err)
			}
			want := newVersion(3)
			if latest.ID != want.ID || latest.Text != want.Text || latest.Rules != 3 || latest.Clauses != 6 {
				t.Errorf("Latest() = %+v, want %+v", latest, want)
			}
			if !latest.LoadedAt.Equal(want.LoadedAt) {
				t.Errorf("LoadedAt = %v, want %v", latest.LoadedAt, want.LoadedAt)
			}

			got, err := s.Get(ctx, "v2")
			if err != nil {
				t.Fatalf("Get(v2) error = %v", err)
			}
			if got.Checksum != "sum2" || got.Text != "rule(r2).\n" {
				t.Errorf("Get(v2) = %+v", got)
			}
			if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t, 0) {
		t.Run(name, func(t *testing.T) {
			for i := 1; i <= 4; i++ {
				if err := s.Record(ctx, newVersion(i)); err != nil {
					t.Fatal(err)
				}
			}

			all, err := s.List(ctx, 0)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(all) != 4 {
				t.Fatalf("List(0) returned %d versions, want 4", len(all))
			}
			for i, v := range all {
				if want := fmt.Sprintf("v%d", 4-i); v.ID != want {
					t.Errorf("List()[%d].ID = %s, want %s", i, v.ID, want)
				}
				if v.Text != "" {
					t.Errorf("List()[%d].Text = %q, want empty", i, v.Text)
				}
			}

			two, err := s.List(ctx, 2)
			if err != nil {
				t.Fatal(err)
			}
			if len(two) != 2 || two[0].ID != "v4" || two[1].ID != "v3" {
				t.Errorf("List(2) = %v", two)
			}
		})
	}
}

func TestStore_Prune(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t, 2) {
		t.Run(name, func(t *testing.T) {
			for i := 1; i <= 5; i++ {
				if err := s.Record(ctx, newVersion(i)); err != nil {
					t.Fatal(err)
				}
			}
			list, err := s.List(ctx, 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 2 || list[0].ID != "v5" || list[1].ID != "v4" {
				t.Errorf("List() after prune = %v, want [v5 v4]", list)
			}
			if _, err := s.Get(ctx, "v1"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(v1) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_RecordRequiresID(t *testing.T) {
	for name, s := range backends(t, 0) {
		t.Run(name, func(t *testing.T) {
			err := s.Record(context.Background(), &Version{})
			var storageErr *StorageError
			if !errors.As(err, &storageErr) {
				t.Fatalf("Record() error = %v, want *StorageError", err)
			}
			if storageErr.Operation != "record" {
				t.Errorf("Operation = %q, want record", storageErr.Operation)
			}
		})
	}
}

func TestSQLiteStore_Persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "policies.db")

	s, err := NewSQLiteStore(&SQLiteConfig{Path: path}, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := s.Record(ctx, newVersion(7)); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewSQLiteStore(&SQLiteConfig{Path: path}, nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	latest, err := reopened.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.ID != "v7" || latest.Text != "rule(r7).\n" {
		t.Errorf("Latest() after reopen = %+v", latest)
	}
}

func TestNewSQLiteStore_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config *SQLiteConfig
	}{
		{"unknown driver", &SQLiteConfig{Driver: "postgres", Path: "x.db"}},
		{"empty path", &SQLiteConfig{Driver: DriverModernc}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSQLiteStore(tt.config, nil)
			var storageErr *StorageError
			if !errors.As(err, &storageErr) {
				t.Fatalf("error = %v, want *StorageError", err)
			}
		})
	}
}

func TestStorageError(t *testing.T) {
	cause := errors.New("disk full")
	err := newStorageError("sqlite", "record", cause)
	if !errors.Is(err, cause) {
		t.Error("StorageError should unwrap to its cause")
	}
	want := "storage error [backend=sqlite, operation=record]: disk full"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.StoreConfig
		wantNil bool
		wantErr bool
	}{
		{name: "nil config", cfg: nil, wantNil: true},
		{name: "disabled", cfg: &config.StoreConfig{Enabled: false, Driver: DriverMemory}, wantNil: true},
		{name: "memory", cfg: &config.StoreConfig{Enabled: true, Driver: DriverMemory, MaxVersions: 3}},
		{name: "sqlite", cfg: &config.StoreConfig{Enabled: true, Driver: DriverModernc, Path: filepath.Join(t.TempDir(), "p.db")}},
		{name: "unknown driver", cfg: &config.StoreConfig{Enabled: true, Driver: "postgres"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if (s == nil) != tt.wantNil {
				t.Fatalf("Open() store = %v, wantNil %v", s, tt.wantNil)
			}
			if s != nil {
				defer s.Close()
				if _, err := s.Latest(t.Context()); !errors.Is(err, ErrNotFound) {
					t.Errorf("Latest() on new store error = %v, want ErrNotFound", err)
				}
			}
		})
	}
}
