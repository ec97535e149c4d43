package theory

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MatthiasGr/trusted-connector/pkg/lucon/ast"
	luconErrors "github.com/MatthiasGr/trusted-connector/pkg/lucon/errors"
	"github.com/MatthiasGr/trusted-connector/pkg/lucon/parser"
	"github.com/MatthiasGr/trusted-connector/pkg/lucon/solver"
)

var endpointKey = ast.Key{Name: "has_endpoint", Arity: 2}

// Store holds the active theory. Readers take the current snapshot without
// locking; loads build a new snapshot and publish it with a single atomic
// swap, so readers see either the old or the new theory in full.
type Store struct {
	current atomic.Pointer[Snapshot]

	// loadMu serializes loads.
	loadMu sync.Mutex

	parser   *parser.Parser
	logger   *slog.Logger
	external map[ast.Key]bool
}

// NewStore creates a store holding the empty theory. A nil parser uses the
// default parser and a nil logger uses slog.Default().
func NewStore(p *parser.Parser, logger *slog.Logger) *Store {
	if p == nil {
		p = parser.NewParser()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		parser: p,
		logger: logger.With("component", "lucon.theory"),
	}
	s.current.Store(newSnapshot(nil))
	return s
}

// WithExternal declares predicates that callers supply as facts at query
// time, so that policy bodies may call them without a definition.
func (s *Store) WithExternal(keys ...ast.Key) *Store {
	if s.external == nil {
		s.external = make(map[ast.Key]bool, len(keys))
	}
	for _, k := range keys {
		s.external[k] = true
	}
	return s
}

// Current returns the active snapshot.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Load parses and validates src and, if the whole source is usable, makes it
// the active theory. On error the active theory is unchanged and the error is
// an *InvalidTheoryError.
func (s *Store) Load(src, name string) (*Snapshot, error) {
	snap, err := s.Compile(src, name)
	if err != nil {
		return nil, err
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	snap.loadedAt = time.Now()
	s.current.Store(snap)

	s.logger.Info("theory loaded",
		"source", name,
		"version", snap.version,
		"clauses", snap.Len(),
		"rules", len(snap.rules),
		"warnings", len(snap.warnings))
	return snap, nil
}

// Compile parses and validates src into a snapshot without installing it.
func (s *Store) Compile(src, name string) (*Snapshot, error) {
	clauses, err := s.parser.ParseString(src, name)
	if err != nil {
		var errList *luconErrors.ErrorList
		if errors.As(err, &errList) {
			return nil, &InvalidTheoryError{Source: name, Problems: errList}
		}
		return nil, &InvalidTheoryError{Source: name, Cause: err}
	}

	problems := luconErrors.NewErrorList()
	var warnings []string
	for _, c := range clauses {
		if err := validateClause(c); err != nil {
			problems.Add(err)
			continue
		}
		if w := clauseWarning(c); w != "" {
			warnings = append(warnings, fmt.Sprintf("%s: %s", c.Location, w))
			s.logger.Warn(w, "location", c.Location.String())
		}
	}
	if problems.HasErrors() {
		return nil, &InvalidTheoryError{Source: name, Problems: problems.AddContext(src)}
	}
	for _, w := range definitionWarnings(clauses, s.external) {
		warnings = append(warnings, fmt.Sprintf("%s: %s", w.loc, w.msg))
		s.logger.Warn(w.msg, "location", w.loc.String())
	}

	sum := sha256.Sum256([]byte(src))
	snap := newSnapshot(clauses)
	snap.warnings = warnings
	snap.version = uuid.NewString()
	snap.checksum = hex.EncodeToString(sum[:])
	snap.source = src
	return snap, nil
}

// validateClause rejects clauses that parse but would make the policy
// unusable.
func validateClause(c *ast.Clause) *luconErrors.Error {
	if c.Key() != endpointKey {
		return nil
	}
	pattern := c.Head.(*ast.Compound).Args[1]
	switch pattern.(type) {
	case *ast.Var:
		return nil
	case *ast.Compound:
		return luconErrors.NewValidationError(c.Location,
			"has_endpoint pattern must be a string or atom, got %s", pattern.String())
	}
	text, _ := ast.Text(pattern)
	if _, err := solver.CompilePattern(text); err != nil {
		e := luconErrors.NewValidationError(c.Location, "invalid has_endpoint pattern %q: %v", text, err)
		e.Suggestion = "endpoint patterns are regular expressions matched against the whole endpoint URI"
		return e
	}
	return nil
}

// clauseWarning describes clauses that load but never take effect.
func clauseWarning(c *ast.Clause) string {
	if isHostBinding(c.Body) {
		return fmt.Sprintf("host binding clause for %s is ignored, the builtin is used instead", c.Key())
	}
	if solver.IsBuiltin(c.Key()) {
		return fmt.Sprintf("clause for builtin %s is never called", c.Key())
	}
	return ""
}

// isHostBinding reports whether body uses the legacy
// class(...) <- method(...) returns R form.
func isHostBinding(body ast.Term) bool {
	c, ok := body.(*ast.Compound)
	if !ok {
		return false
	}
	switch {
	case c.Functor == "<-" && len(c.Args) == 2:
		return true
	case c.Functor == "returns" && len(c.Args) == 2:
		return isHostBinding(c.Args[0])
	case c.Functor == "," && len(c.Args) == 2:
		return isHostBinding(c.Args[0]) || isHostBinding(c.Args[1])
	}
	return false
}
