package ast

import (
	"fmt"
	"strings"
)

// Location represents the source location of a clause in the policy text.
type Location struct {
	File   string // Source name, empty for inline text
	Line   int    // Line number (1-based)
	Column int    // Column number (1-based)
}

// String returns a human-readable representation of the location.
// Format: "file:line:column"
func (l Location) String() string {
	file := l.File
	if file == "" {
		file = "<policy>"
	}
	return fmt.Sprintf("%s:%d:%d", file, l.Line, l.Column)
}

// IsValid returns true if the location has line information.
func (l Location) IsValid() bool {
	return l.Line > 0
}

// Clause is a fact or rule. A fact is a clause whose body is true.
type Clause struct {
	Head     Term
	Body     Term
	Location Location
}

// NewFact creates a clause with body true.
func NewFact(head Term) *Clause {
	return &Clause{Head: head, Body: True}
}

// NewRule creates a clause with the given body.
func NewRule(head, body Term) *Clause {
	return &Clause{Head: head, Body: body}
}

// IsFact reports whether the clause body is true.
func (c *Clause) IsFact() bool {
	return c.Body == nil || c.Body == True
}

// Key returns the predicate key of the clause head.
func (c *Clause) Key() Key {
	k, _ := KeyOf(c.Head)
	return k
}

// Term returns the clause as a single term, Head :- Body for rules.
func (c *Clause) Term() Term {
	if c.IsFact() {
		return c.Head
	}
	return NewCompound(":-", c.Head, c.Body)
}

// String renders the clause without the terminating full stop.
func (c *Clause) String() string {
	return Format(c.Term())
}

// Rename returns a copy of the clause with every variable replaced by a fresh
// one. Clauses stored in a theory are renamed before each resolution step so
// that separate uses never share bindings.
func (c *Clause) Rename() (head, body Term) {
	m := make(map[*Var]*Var)
	head = rename(c.Head, m)
	if c.Body == nil {
		return head, True
	}
	return head, rename(c.Body, m)
}

func rename(t Term, m map[*Var]*Var) Term {
	switch v := t.(type) {
	case *Var:
		nv, ok := m[v]
		if !ok {
			nv = NewVar("")
			m[v] = nv
		}
		return nv
	case *Compound:
		args := make([]Term, len(v.Args))
		changed := false
		for i, a := range v.Args {
			args[i] = rename(a, m)
			if args[i] != a {
				changed = true
			}
		}
		if !changed {
			return v
		}
		return &Compound{Functor: v.Functor, Args: args}
	default:
		return t
	}
}

// FormatClauses renders clauses as theory text, one clause per line, each
// terminated by a full stop.
func FormatClauses(clauses []*Clause) string {
	var sb strings.Builder
	for _, c := range clauses {
		sb.WriteString(c.String())
		sb.WriteString(".\n")
	}
	return sb.String()
}
