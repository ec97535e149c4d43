package solver

import (
	"github.com/MatthiasGr/trusted-connector/pkg/lucon/ast"
)

// Bindings is a substitution with a trail. Every binding is recorded on the
// trail so that the substitution can be rolled back to a mark in time
// proportional to the bindings made since the mark.
//
// Bindings is not safe for concurrent use; each query owns its own.
type Bindings struct {
	vals  map[*ast.Var]ast.Term
	trail []*ast.Var
}

// NewBindings creates an empty substitution.
func NewBindings() *Bindings {
	return &Bindings{vals: make(map[*ast.Var]ast.Term)}
}

// Bind binds v to t. The variable must be unbound.
func (b *Bindings) Bind(v *ast.Var, t ast.Term) {
	b.vals[v] = t
	b.trail = append(b.trail, v)
}

// Lookup returns the direct binding of v.
func (b *Bindings) Lookup(v *ast.Var) (ast.Term, bool) {
	t, ok := b.vals[v]
	return t, ok
}

// Len returns the number of bound variables.
func (b *Bindings) Len() int { return len(b.trail) }

// Mark returns a checkpoint for Undo.
func (b *Bindings) Mark() int { return len(b.trail) }

// Undo removes every binding made after mark.
func (b *Bindings) Undo(mark int) {
	for i := len(b.trail) - 1; i >= mark; i-- {
		delete(b.vals, b.trail[i])
	}
	b.trail = b.trail[:mark]
}

// Deref follows variable bindings until it reaches an unbound variable or a
// non-variable term.
func (b *Bindings) Deref(t ast.Term) ast.Term {
	for {
		v, ok := t.(*ast.Var)
		if !ok {
			return t
		}
		bound, ok := b.vals[v]
		if !ok {
			return v
		}
		t = bound
	}
}

// Resolve applies the substitution to t recursively. Unbound variables are
// kept. Cyclic bindings created without occurs check are cut at the point of
// recursion, leaving the variable in place.
func (b *Bindings) Resolve(t ast.Term) ast.Term {
	return b.resolve(t, nil)
}

func (b *Bindings) resolve(t ast.Term, active map[*ast.Var]bool) ast.Term {
	switch v := t.(type) {
	case *ast.Var:
		bound, ok := b.vals[v]
		if !ok {
			return v
		}
		if active[v] {
			return v
		}
		if active == nil {
			active = make(map[*ast.Var]bool)
		}
		active[v] = true
		r := b.resolve(bound, active)
		delete(active, v)
		return r
	case *ast.Compound:
		var args []ast.Term
		for i, a := range v.Args {
			r := b.resolve(a, active)
			if args == nil && r != a {
				args = make([]ast.Term, len(v.Args))
				copy(args, v.Args[:i])
			}
			if args != nil {
				args[i] = r
			}
		}
		if args == nil {
			return v
		}
		return &ast.Compound{Functor: v.Functor, Args: args}
	default:
		return t
	}
}

// Unify makes x and y equal by extending the substitution. On failure the
// bindings made by the attempt are left in place; callers undo to a mark.
// There is no occurs check.
func (b *Bindings) Unify(x, y ast.Term) bool {
	type pair struct{ x, y ast.Term }
	stack := []pair{{x, y}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		a := b.Deref(p.x)
		c := b.Deref(p.y)

		if va, ok := a.(*ast.Var); ok {
			if vc, ok := c.(*ast.Var); ok && va == vc {
				continue
			}
			b.Bind(va, c)
			continue
		}
		if vc, ok := c.(*ast.Var); ok {
			b.Bind(vc, a)
			continue
		}

		switch at := a.(type) {
		case *ast.Compound:
			ct, ok := c.(*ast.Compound)
			if !ok || at.Functor != ct.Functor || len(at.Args) != len(ct.Args) {
				return false
			}
			if at == ct {
				continue
			}
			for i := len(at.Args) - 1; i >= 0; i-- {
				stack = append(stack, pair{at.Args[i], ct.Args[i]})
			}
		default:
			if !atomicEqual(a, c) {
				return false
			}
		}
	}
	return true
}

// atomicEqual compares atoms, numbers and strings by value. An integer never
// equals a float.
func atomicEqual(a, b ast.Term) bool {
	switch x := a.(type) {
	case ast.Atom:
		y, ok := b.(ast.Atom)
		return ok && x == y
	case ast.Int:
		y, ok := b.(ast.Int)
		return ok && x == y
	case ast.Float:
		y, ok := b.(ast.Float)
		return ok && x == y
	case ast.String:
		y, ok := b.(ast.String)
		return ok && x == y
	}
	return false
}

// copyTerm resolves t and replaces its remaining variables with fresh ones.
func (b *Bindings) copyTerm(t ast.Term) ast.Term {
	return renameVars(b.Resolve(t), make(map[*ast.Var]*ast.Var))
}

func renameVars(t ast.Term, m map[*ast.Var]*ast.Var) ast.Term {
	switch v := t.(type) {
	case *ast.Var:
		nv, ok := m[v]
		if !ok {
			nv = ast.NewVar("")
			m[v] = nv
		}
		return nv
	case *ast.Compound:
		args := make([]ast.Term, len(v.Args))
		for i, a := range v.Args {
			args[i] = renameVars(a, m)
		}
		return &ast.Compound{Functor: v.Functor, Args: args}
	default:
		return t
	}
}
