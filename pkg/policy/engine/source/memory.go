package source

import (
	"context"
	"sync"
)

// MemorySource is an in-memory policy source for testing.
type MemorySource struct {
	mu   sync.RWMutex
	name string
	text string
}

// NewMemorySource creates a new in-memory policy source.
func NewMemorySource(name, text string) *MemorySource {
	return &MemorySource{name: name, text: text}
}

// Load returns the text stored in memory.
func (s *MemorySource) Load(ctx context.Context) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Document{Name: s.name, Text: s.text}, nil
}

// Path returns "": memory sources are not watched.
func (s *MemorySource) Path() string {
	return ""
}

// SetText replaces the policy text (for testing).
func (s *MemorySource) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
}
