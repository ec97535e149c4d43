package solver

import (
	"context"
	"io"
	"log/slog"

	"github.com/MatthiasGr/trusted-connector/pkg/lucon/ast"
)

// Database provides the clauses of a theory by predicate key, in declaration
// order. Implementations must be safe for concurrent reads.
type Database interface {
	Clauses(key ast.Key) []*ast.Clause
}

// Solver runs goals against a Database. Once configured, a Solver may run any
// number of concurrent queries; each query owns its bindings.
type Solver struct {
	db     Database
	out    io.Writer
	logger *slog.Logger

	// ctxCheckInterval is the number of resolution steps between context checks.
	ctxCheckInterval int
}

// NewSolver creates a solver over db. A nil db behaves as an empty theory.
func NewSolver(db Database) *Solver {
	return &Solver{
		db:               db,
		out:              io.Discard,
		logger:           slog.Default().With("component", "lucon.solver"),
		ctxCheckInterval: 256,
	}
}

// WithOutput sets the writer used by write/1, print/1 and nl/0.
func (s *Solver) WithOutput(w io.Writer) *Solver {
	if w == nil {
		w = io.Discard
	}
	s.out = w
	return s
}

// WithLogger sets the logger used for branch-local evaluation errors.
func (s *Solver) WithLogger(logger *slog.Logger) *Solver {
	if logger != nil {
		s.logger = logger.With("component", "lucon.solver")
	}
	return s
}

// Solve starts the search for goal and returns a lazy solution sequence.
// Extra clauses are consulted after the theory's clauses for the same
// predicate and are visible to this query only.
//
// No work is done until the first call to Next.
func (s *Solver) Solve(ctx context.Context, goal ast.Term, extra []*ast.Clause) *Solutions {
	m := &machine{
		solver: s,
		ctx:    ctx,
		b:      NewBindings(),
		goals:  &cont{goal: goal},
	}
	if len(extra) > 0 {
		m.extra = make(map[ast.Key][]*ast.Clause)
		for _, c := range extra {
			k := c.Key()
			m.extra[k] = append(m.extra[k], c)
		}
	}
	return &Solutions{m: m}
}

// Solutions is a lazy, resumable sequence of answers to one query. It is not
// safe for concurrent use.
//
//	sols := s.Solve(ctx, goal, nil)
//	for sols.Next() {
//	    fmt.Println(sols.Resolve(x))
//	}
//	if err := sols.Err(); err != nil {
//	    ...
//	}
type Solutions struct {
	m       *machine
	started bool
	done    bool
	count   int
}

// Next advances to the next solution. It returns false when the search space
// is exhausted or the context is done; Err distinguishes the two.
func (it *Solutions) Next() bool {
	if it.done {
		return false
	}
	var ok bool
	if !it.started {
		it.started = true
		ok = it.m.run()
	} else {
		ok = it.m.backtrack() && it.m.run()
	}
	if !ok {
		it.done = true
		return false
	}
	it.count++
	return true
}

// Resolve applies the bindings of the current solution to t.
func (it *Solutions) Resolve(t ast.Term) ast.Term {
	return it.m.b.Resolve(t)
}

// Bindings returns the current solution for the given variables, keyed by
// variable name.
func (it *Solutions) Bindings(vars []*ast.Var) map[string]ast.Term {
	out := make(map[string]ast.Term, len(vars))
	for _, v := range vars {
		out[v.Name] = it.m.b.Resolve(v)
	}
	return out
}

// Count returns the number of solutions produced so far.
func (it *Solutions) Count() int { return it.count }

// BranchErrors returns the number of search branches that failed because of
// a builtin evaluation error.
func (it *Solutions) BranchErrors() int { return it.m.branchErrors }

// Err returns the error that stopped the search, if any. Exhausting the
// search space is not an error.
func (it *Solutions) Err() error { return it.m.err }

// Close stops the search and releases its state.
func (it *Solutions) Close() {
	it.done = true
	it.m.goals = nil
	it.m.cps = nil
}

// Take advances up to n times and reports how many solutions were found.
// A negative n drains the sequence.
func (it *Solutions) Take(n int) (int, error) {
	found := 0
	for n < 0 || found < n {
		if !it.Next() {
			break
		}
		found++
	}
	return found, it.Err()
}
