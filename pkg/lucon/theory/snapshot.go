package theory

import (
	"time"

	"github.com/MatthiasGr/trusted-connector/pkg/lucon/ast"
)

// Snapshot is an immutable, indexed theory. Queries hold on to the snapshot
// they started with, so a concurrent load never changes what they see.
type Snapshot struct {
	clauses  []*ast.Clause
	index    map[ast.Key][]*ast.Clause
	rules    []string
	warnings []string

	version  string
	checksum string
	source   string
	loadedAt time.Time
}

func newSnapshot(clauses []*ast.Clause) *Snapshot {
	s := &Snapshot{
		clauses: clauses,
		index:   make(map[ast.Key][]*ast.Clause),
		rules:   make([]string, 0),
	}
	for _, c := range clauses {
		k := c.Key()
		s.index[k] = append(s.index[k], c)
	}
	for _, c := range s.index[ast.Key{Name: "rule", Arity: 1}] {
		if !c.IsFact() {
			continue
		}
		s.rules = append(s.rules, termName(c.Head.(*ast.Compound).Args[0]))
	}
	return s
}

// termName renders a term used as an identifier: the plain text of atomic
// terms, the source form otherwise.
func termName(t ast.Term) string {
	if s, ok := ast.Text(t); ok {
		return s
	}
	return ast.Format(t)
}

// Clauses returns the clauses for key in declaration order. The returned
// slice must not be modified.
func (s *Snapshot) Clauses(key ast.Key) []*ast.Clause {
	return s.index[key]
}

// All returns every clause in declaration order.
func (s *Snapshot) All() []*ast.Clause {
	return s.clauses
}

// Len returns the number of clauses.
func (s *Snapshot) Len() int { return len(s.clauses) }

// Rules returns the names declared by rule/1 facts in declaration order.
func (s *Snapshot) Rules() []string {
	out := make([]string, len(s.rules))
	copy(out, s.rules)
	return out
}

// Warnings returns the non-fatal problems found while loading.
func (s *Snapshot) Warnings() []string {
	return s.warnings
}

// Version returns the unique identifier assigned when the snapshot was
// loaded. The initial empty theory has no version.
func (s *Snapshot) Version() string { return s.version }

// Checksum returns the hex SHA-256 of the policy source.
func (s *Snapshot) Checksum() string { return s.checksum }

// Source returns the policy source text the snapshot was loaded from.
func (s *Snapshot) Source() string { return s.source }

// LoadedAt returns the load time.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Text renders the theory as source text, one clause per line.
func (s *Snapshot) Text() string {
	return ast.FormatClauses(s.clauses)
}

// Document is the structured form of a theory.
type Document struct {
	Theory  string            `json:"theory"`
	Version string            `json:"version"`
	Clauses []*ast.ClauseNode `json:"clauses"`
}

// Structured returns the theory as a tree suitable for JSON encoding.
func (s *Snapshot) Structured() *Document {
	doc := &Document{
		Theory:  s.Text(),
		Version: s.version,
		Clauses: make([]*ast.ClauseNode, len(s.clauses)),
	}
	for i, c := range s.clauses {
		doc.Clauses[i] = ast.ToClauseNode(c)
	}
	return doc
}
