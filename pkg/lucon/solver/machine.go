package solver

import (
	"context"
	"errors"

	"github.com/MatthiasGr/trusted-connector/pkg/lucon/ast"
)

// cont is a continuation: a linked list of goals still to prove. Each goal
// carries the choice point height that a cut inside it cuts back to.
type cont struct {
	goal ast.Term
	cutB int
	next *cont

	// cutOnly marks an internal step that cuts to cutB and proves nothing.
	cutOnly bool
}

type cpKind int

const (
	cpClauses cpKind = iota // remaining candidate clauses for a goal
	cpGoals                 // an alternative continuation
)

// choicePoint records an untried alternative together with the trail mark
// to restore before trying it.
type choicePoint struct {
	kind cpKind
	mark int

	// cpClauses
	goal       ast.Term
	candidates []*ast.Clause
	idx        int
	next       *cont

	// cpGoals
	alt *cont
}

// machine is the search state of one query.
type machine struct {
	solver *Solver
	ctx    context.Context
	b      *Bindings
	extra  map[ast.Key][]*ast.Clause

	goals *cont
	cps   []*choicePoint
	steps int

	err          error
	branchErrors int
}

// run proves the current continuation. It returns true on a solution and
// false when no alternatives remain or the search was stopped.
func (m *machine) run() bool {
	for {
		if m.goals == nil {
			return true
		}

		m.steps++
		if m.steps%m.solver.ctxCheckInterval == 0 && m.ctx != nil {
			if err := m.ctx.Err(); err != nil {
				m.err = err
				return false
			}
		}

		c := m.goals
		m.goals = c.next

		if c.cutOnly {
			m.cutTo(c.cutB)
			continue
		}

		ok, err := m.step(c)
		if err != nil {
			var evalErr *EvalError
			if !errors.As(err, &evalErr) {
				m.err = err
				return false
			}
			m.branchErrors++
			m.solver.logger.Debug("builtin evaluation failed, branch abandoned",
				"goal", ast.Format(m.b.Resolve(c.goal)),
				"error", err)
			ok = false
		}
		if !ok && !m.backtrack() {
			return false
		}
	}
}

// backtrack restores the most recent choice point with an untried
// alternative. It returns false when none is left.
func (m *machine) backtrack() bool {
	if m.err != nil {
		return false
	}
	for len(m.cps) > 0 {
		cp := m.cps[len(m.cps)-1]
		m.b.Undo(cp.mark)

		switch cp.kind {
		case cpGoals:
			m.cps = m.cps[:len(m.cps)-1]
			m.goals = cp.alt
			return true
		case cpClauses:
			if m.resume(cp) {
				return true
			}
		}
	}
	return false
}

func (m *machine) cutTo(height int) {
	if len(m.cps) > height {
		for i := height; i < len(m.cps); i++ {
			m.cps[i] = nil
		}
		m.cps = m.cps[:height]
	}
}

func (m *machine) push(cp *choicePoint) {
	m.cps = append(m.cps, cp)
}

// step proves one goal, leaving the continuation for the rest of the search
// in m.goals. It returns false if the goal failed.
func (m *machine) step(c *cont) (bool, error) {
	goal := m.b.Deref(c.goal)

	switch g := goal.(type) {
	case *ast.Var:
		return false, instantiationErr("goal is unbound")
	case ast.Atom:
		switch g {
		case ast.True:
			return true, nil
		case "fail", ast.False:
			return false, nil
		case "!":
			m.cutTo(c.cutB)
			return true, nil
		}
	case *ast.Compound:
		if handled, ok, err := m.control(g, c); handled {
			return ok, err
		}
	case ast.Int, ast.Float, ast.String:
		return false, typeErr("%s is not callable", goal.String())
	}

	key, _ := ast.KeyOf(goal)
	if bi, ok := builtins[key]; ok {
		var args []ast.Term
		if cg, isCompound := goal.(*ast.Compound); isCompound {
			args = cg.Args
		}
		ok, err := bi(m, args)
		if err != nil {
			if e, isEval := err.(*EvalError); isEval && e.Predicate == "" {
				e.Predicate = key.String()
			}
			return false, err
		}
		return ok, nil
	}

	candidates := m.candidates(key)
	if len(candidates) == 0 {
		return false, nil
	}
	cp := &choicePoint{
		kind:       cpClauses,
		mark:       m.b.Mark(),
		goal:       goal,
		candidates: candidates,
		next:       c.next,
	}
	m.push(cp)
	return m.resume(cp), nil
}

// resume tries the remaining candidate clauses of the choice point on top of
// the stack. On success the clause body becomes the current continuation; the
// choice point is popped once its last candidate is taken.
func (m *machine) resume(cp *choicePoint) bool {
	height := len(m.cps) - 1
	for cp.idx < len(cp.candidates) {
		clause := cp.candidates[cp.idx]
		cp.idx++

		if m.firstArgMismatch(cp.goal, clause.Head) {
			continue
		}

		last := !m.hasMoreCandidates(cp)
		if last {
			m.cps[height] = nil
			m.cps = m.cps[:height]
		}

		head, body := clause.Rename()
		if m.b.Unify(cp.goal, head) {
			if body == ast.True {
				m.goals = cp.next
			} else {
				m.goals = &cont{goal: body, cutB: height, next: cp.next}
			}
			return true
		}
		m.b.Undo(cp.mark)
		if last {
			return false
		}
	}
	m.cps[height] = nil
	m.cps = m.cps[:height]
	return false
}

// hasMoreCandidates reports whether a candidate after the current index
// could match the goal.
func (m *machine) hasMoreCandidates(cp *choicePoint) bool {
	for i := cp.idx; i < len(cp.candidates); i++ {
		if !m.firstArgMismatch(cp.goal, cp.candidates[i].Head) {
			return true
		}
	}
	return false
}

// firstArgMismatch is a cheap pre-unification filter on the first argument.
func (m *machine) firstArgMismatch(goal, head ast.Term) bool {
	g, ok := goal.(*ast.Compound)
	if !ok || len(g.Args) == 0 {
		return false
	}
	h, ok := head.(*ast.Compound)
	if !ok || len(h.Args) == 0 {
		return false
	}

	ga := m.b.Deref(g.Args[0])
	ha := h.Args[0]
	if _, isVar := ga.(*ast.Var); isVar {
		return false
	}
	if _, isVar := ha.(*ast.Var); isVar {
		return false
	}

	if gc, isCompound := ga.(*ast.Compound); isCompound {
		hc, ok := ha.(*ast.Compound)
		return !ok || hc.Functor != gc.Functor || len(hc.Args) != len(gc.Args)
	}
	if _, isCompound := ha.(*ast.Compound); isCompound {
		return true
	}
	return !atomicEqual(ga, ha)
}

// candidates returns the clauses for key: the theory's own, then the
// query-local extra clauses, then the library prelude if neither defines it.
func (m *machine) candidates(key ast.Key) []*ast.Clause {
	var stored []*ast.Clause
	if m.solver.db != nil {
		stored = m.solver.db.Clauses(key)
	}
	extra := m.extra[key]

	switch {
	case len(stored) == 0 && len(extra) == 0:
		return prelude[key]
	case len(extra) == 0:
		return stored
	case len(stored) == 0:
		return extra
	}
	all := make([]*ast.Clause, 0, len(stored)+len(extra))
	all = append(all, stored...)
	return append(all, extra...)
}

// control handles the control constructs. handled is false for any other
// goal.
func (m *machine) control(g *ast.Compound, c *cont) (handled, ok bool, err error) {
	switch {
	case g.Functor == "," && len(g.Args) == 2:
		m.goals = &cont{goal: g.Args[0], cutB: c.cutB,
			next: &cont{goal: g.Args[1], cutB: c.cutB, next: m.goals}}
		return true, true, nil

	case g.Functor == ";" && len(g.Args) == 2:
		height := len(m.cps)
		left := m.b.Deref(g.Args[0])
		if ite, isITE := left.(*ast.Compound); isITE && ite.Functor == "->" && len(ite.Args) == 2 {
			m.push(&choicePoint{kind: cpGoals, mark: m.b.Mark(),
				alt: &cont{goal: g.Args[1], cutB: c.cutB, next: m.goals}})
			m.goals = m.ifThen(ite.Args[0], ite.Args[1], height, c.cutB)
			return true, true, nil
		}
		m.push(&choicePoint{kind: cpGoals, mark: m.b.Mark(),
			alt: &cont{goal: g.Args[1], cutB: c.cutB, next: m.goals}})
		m.goals = &cont{goal: left, cutB: c.cutB, next: m.goals}
		return true, true, nil

	case g.Functor == "->" && len(g.Args) == 2:
		m.goals = m.ifThen(g.Args[0], g.Args[1], len(m.cps), c.cutB)
		return true, true, nil

	case g.Functor == "\\+" && len(g.Args) == 1:
		height := len(m.cps)
		m.push(&choicePoint{kind: cpGoals, mark: m.b.Mark(), alt: m.goals})
		m.goals = &cont{goal: g.Args[0], cutB: height + 1,
			next: &cont{cutOnly: true, cutB: height,
				next: &cont{goal: ast.False}}}
		return true, true, nil

	case g.Functor == "call" && len(g.Args) >= 1:
		goal := m.b.Deref(g.Args[0])
		if len(g.Args) > 1 {
			goal, err = addArgs(goal, g.Args[1:])
			if err != nil {
				return true, false, err
			}
		}
		m.goals = &cont{goal: goal, cutB: len(m.cps), next: m.goals}
		return true, true, nil

	case g.Functor == "once" && len(g.Args) == 1:
		m.goals = m.ifThen(g.Args[0], ast.True, len(m.cps), c.cutB)
		return true, true, nil

	case g.Functor == "ignore" && len(g.Args) == 1:
		height := len(m.cps)
		m.push(&choicePoint{kind: cpGoals, mark: m.b.Mark(), alt: m.goals})
		m.goals = m.ifThen(g.Args[0], ast.True, height, c.cutB)
		return true, true, nil

	case g.Functor == "forall" && len(g.Args) == 2:
		rewritten := ast.NewCompound("\\+", ast.NewCompound(",", g.Args[0], ast.NewCompound("\\+", g.Args[1])))
		m.goals = &cont{goal: rewritten, cutB: c.cutB, next: m.goals}
		return true, true, nil
	}
	return false, false, nil
}

// ifThen builds the continuation Cond, cut to height, Then. The condition
// runs opaque to cut.
func (m *machine) ifThen(cond, then ast.Term, height, cutB int) *cont {
	return &cont{goal: cond, cutB: len(m.cps),
		next: &cont{cutOnly: true, cutB: height,
			next: &cont{goal: then, cutB: cutB, next: m.goals}}}
}

// addArgs appends extra arguments to a callable term for call/N.
func addArgs(goal ast.Term, extra []ast.Term) (ast.Term, error) {
	switch g := goal.(type) {
	case ast.Atom:
		return ast.NewCompound(string(g), extra...), nil
	case *ast.Compound:
		args := make([]ast.Term, 0, len(g.Args)+len(extra))
		args = append(args, g.Args...)
		args = append(args, extra...)
		return ast.NewCompound(g.Functor, args...), nil
	case *ast.Var:
		return nil, instantiationErr("call/N goal is unbound")
	}
	return nil, typeErr("%s is not callable", goal.String())
}

// subquery runs goal to exhaustion on the current bindings and calls yield
// for each solution. Bindings made by the subquery are undone afterwards.
func (m *machine) subquery(goal ast.Term, yield func() bool) error {
	sub := &machine{
		solver: m.solver,
		ctx:    m.ctx,
		b:      m.b,
		extra:  m.extra,
		goals:  &cont{goal: goal},
	}
	mark := m.b.Mark()
	defer m.b.Undo(mark)

	first := true
	for {
		var ok bool
		if first {
			ok = sub.run()
			first = false
		} else {
			ok = sub.backtrack() && sub.run()
		}
		m.branchErrors += sub.branchErrors
		sub.branchErrors = 0
		if !ok {
			return sub.err
		}
		if !yield() {
			return nil
		}
	}
}
