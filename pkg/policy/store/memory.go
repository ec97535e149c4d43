package store

import (
	"context"
	"sync"
)

// MemoryStore keeps the version history in memory. It does not survive
// restarts and is intended for tests and for running without persistence.
type MemoryStore struct {
	mu          sync.RWMutex
	versions    []*Version // oldest first
	maxVersions int
}

// NewMemoryStore creates a memory store keeping at most maxVersions versions.
// A maxVersions of zero or less keeps every version.
func NewMemoryStore(maxVersions int) *MemoryStore {
	return &MemoryStore{maxVersions: maxVersions}
}

// Record appends a copy of v.
func (s *MemoryStore) Record(ctx context.Context, v *Version) error {
	if v == nil || v.ID == "" {
		return newStorageError("memory", "record", errMissingID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *v
	s.versions = append(s.versions, &c)
	if s.maxVersions > 0 && len(s.versions) > s.maxVersions {
		s.versions = append([]*Version(nil), s.versions[len(s.versions)-s.maxVersions:]...)
	}
	return nil
}

// Latest returns the most recently recorded version.
func (s *MemoryStore) Latest(ctx context.Context) (*Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.versions) == 0 {
		return nil, ErrNotFound
	}
	c := *s.versions[len(s.versions)-1]
	return &c, nil
}

// Get returns the version with the given ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.versions) - 1; i >= 0; i-- {
		if s.versions[i].ID == id {
			c := *s.versions[i]
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

// List returns versions newest first without their text.
func (s *MemoryStore) List(ctx context.Context, limit int) ([]*Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Version, 0, len(s.versions))
	for i := len(s.versions) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		c := *s.versions[i]
		c.Text = ""
		out = append(out, &c)
	}
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
