package ast

import (
	"strconv"
	"sync/atomic"
)

// Kind identifies the kind of a term.
type Kind int

const (
	KindAtom Kind = iota
	KindInt
	KindFloat
	KindString
	KindVar
	KindCompound
	KindList
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAtom:
		return "atom"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindVar:
		return "var"
	case KindCompound:
		return "compound"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Term is a logic value. Implementations are Atom, Int, Float, String, *Var
// and *Compound.
type Term interface {
	// Kind reports the kind of the term.
	Kind() Kind

	// String renders the term as re-parseable source text.
	String() string

	isTerm()
}

// Atom is a symbolic constant.
type Atom string

// Common atoms.
const (
	True  Atom = "true"
	False Atom = "false"
	Nil   Atom = "[]"
)

func (Atom) Kind() Kind       { return KindAtom }
func (a Atom) String() string { return Format(a) }
func (Atom) isTerm()          {}

// Int is an integer number.
type Int int64

func (Int) Kind() Kind       { return KindInt }
func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }
func (Int) isTerm()          {}

// Float is a floating point number.
type Float float64

func (Float) Kind() Kind       { return KindFloat }
func (f Float) String() string { return formatFloat(float64(f)) }
func (Float) isTerm()          {}

// String is a double-quoted string literal.
type String string

func (String) Kind() Kind       { return KindString }
func (s String) String() string { return quoteString(string(s)) }
func (String) isTerm()          {}

var varSeq atomic.Int64

// Var is a logic variable. Variables are compared by identity: two *Var values
// with the same Name are distinct variables unless they are the same pointer.
type Var struct {
	// Name is the source name of the variable. Empty for generated variables.
	Name string

	id int64
}

// NewVar creates a fresh variable with the given source name.
func NewVar(name string) *Var {
	return &Var{Name: name, id: varSeq.Add(1)}
}

// ID returns the process-unique identifier of the variable.
func (v *Var) ID() int64 { return v.id }

func (*Var) Kind() Kind { return KindVar }

func (v *Var) String() string {
	if v.Name != "" {
		return v.Name
	}
	return "_G" + strconv.FormatInt(v.id, 10)
}

func (*Var) isTerm() {}

// Compound is a functor applied to an ordered list of arguments.
// The arity is fixed at construction.
type Compound struct {
	Functor string
	Args    []Term
}

// NewCompound builds a compound term. With no arguments it still produces a
// compound, use Atom for constants.
func NewCompound(functor string, args ...Term) *Compound {
	return &Compound{Functor: functor, Args: args}
}

// Arity returns the number of arguments.
func (c *Compound) Arity() int { return len(c.Args) }

// Kind returns KindList for list cells and KindCompound otherwise.
func (c *Compound) Kind() Kind {
	if c.Functor == "." && len(c.Args) == 2 {
		return KindList
	}
	return KindCompound
}

func (c *Compound) String() string { return Format(c) }

func (*Compound) isTerm() {}

// Cons builds a list cell.
func Cons(head, tail Term) *Compound {
	return &Compound{Functor: ".", Args: []Term{head, tail}}
}

// NewList builds a proper list from the given items.
func NewList(items ...Term) Term {
	return NewPartialList(Nil, items...)
}

// NewPartialList builds a list of items terminated by tail.
func NewPartialList(tail Term, items ...Term) Term {
	list := tail
	for i := len(items) - 1; i >= 0; i-- {
		list = Cons(items[i], list)
	}
	return list
}

// ListItems walks list cells and returns the items together with the tail
// that ended the walk. For a proper list the tail is Nil. Variables are not
// dereferenced.
func ListItems(t Term) ([]Term, Term) {
	var items []Term
	for {
		c, ok := t.(*Compound)
		if !ok || c.Kind() != KindList {
			return items, t
		}
		items = append(items, c.Args[0])
		t = c.Args[1]
	}
}

// Key identifies a predicate family by name and arity.
type Key struct {
	Name  string
	Arity int
}

// String renders the key as name/arity.
func (k Key) String() string {
	return Format(Atom(k.Name)) + "/" + strconv.Itoa(k.Arity)
}

// KeyOf returns the predicate key of a callable term.
func KeyOf(t Term) (Key, bool) {
	switch v := t.(type) {
	case Atom:
		return Key{Name: string(v)}, true
	case *Compound:
		return Key{Name: v.Functor, Arity: len(v.Args)}, true
	default:
		return Key{}, false
	}
}

// IsCallable reports whether t may be used as a goal or clause head.
func IsCallable(t Term) bool {
	_, ok := KeyOf(t)
	return ok
}

// IsAtomic reports whether t is an atom, number or string.
func IsAtomic(t Term) bool {
	switch t.(type) {
	case Atom, Int, Float, String:
		return true
	}
	return false
}

// Text returns the textual content of an atomic term, i.e. the atom name,
// the string contents or the rendered number.
func Text(t Term) (string, bool) {
	switch v := t.(type) {
	case Atom:
		return string(v), true
	case String:
		return string(v), true
	case Int, Float:
		return v.String(), true
	}
	return "", false
}

// Vars returns the distinct variables of t in first-occurrence order.
func Vars(t Term) []*Var {
	var out []*Var
	seen := make(map[*Var]bool)
	var walk func(Term)
	walk = func(t Term) {
		switch v := t.(type) {
		case *Var:
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		case *Compound:
			for _, a := range v.Args {
				walk(a)
			}
		}
	}
	walk(t)
	return out
}
