package solver

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/MatthiasGr/trusted-connector/pkg/lucon/ast"
)

// builtin is a deterministic predicate implemented in Go. It returns false
// to fail the goal. Errors of type *EvalError fail the current branch only.
type builtin func(m *machine, args []ast.Term) (bool, error)

// builtins is the closed builtin table, keyed by name and arity. Builtins
// take precedence over clauses with the same key.
var builtins map[ast.Key]builtin

func init() {
	builtins = map[ast.Key]builtin{
		// Unification and comparison
		{Name: "=", Arity: 2}:       biUnify,
		{Name: "\\=", Arity: 2}:     biNotUnify,
		{Name: "==", Arity: 2}:      biCompare(func(c int) bool { return c == 0 }),
		{Name: "\\==", Arity: 2}:    biCompare(func(c int) bool { return c != 0 }),
		{Name: "@<", Arity: 2}:      biCompare(func(c int) bool { return c < 0 }),
		{Name: "@>", Arity: 2}:      biCompare(func(c int) bool { return c > 0 }),
		{Name: "@=<", Arity: 2}:     biCompare(func(c int) bool { return c <= 0 }),
		{Name: "@>=", Arity: 2}:     biCompare(func(c int) bool { return c >= 0 }),
		{Name: "compare", Arity: 3}: biCompare3,

		// Arithmetic
		{Name: "is", Arity: 2}:  biIs,
		{Name: "=:=", Arity: 2}: biArithCompare(func(c int) bool { return c == 0 }),
		{Name: "=\\=", Arity: 2}: biArithCompare(func(c int) bool { return c != 0 }),
		{Name: "<", Arity: 2}:   biArithCompare(func(c int) bool { return c < 0 }),
		{Name: ">", Arity: 2}:   biArithCompare(func(c int) bool { return c > 0 }),
		{Name: "=<", Arity: 2}:  biArithCompare(func(c int) bool { return c <= 0 }),
		{Name: ">=", Arity: 2}:  biArithCompare(func(c int) bool { return c >= 0 }),

		// Type tests
		{Name: "var", Arity: 1}:      biType(func(t ast.Term) bool { _, ok := t.(*ast.Var); return ok }),
		{Name: "nonvar", Arity: 1}:   biType(func(t ast.Term) bool { _, ok := t.(*ast.Var); return !ok }),
		{Name: "atom", Arity: 1}:     biType(func(t ast.Term) bool { _, ok := t.(ast.Atom); return ok }),
		{Name: "number", Arity: 1}:   biType(isNumber),
		{Name: "integer", Arity: 1}:  biType(func(t ast.Term) bool { _, ok := t.(ast.Int); return ok }),
		{Name: "float", Arity: 1}:    biType(func(t ast.Term) bool { _, ok := t.(ast.Float); return ok }),
		{Name: "atomic", Arity: 1}:   biType(ast.IsAtomic),
		{Name: "compound", Arity: 1}: biType(func(t ast.Term) bool { _, ok := t.(*ast.Compound); return ok }),
		{Name: "callable", Arity: 1}: biType(ast.IsCallable),
		{Name: "string", Arity: 1}:   biType(func(t ast.Term) bool { _, ok := t.(ast.String); return ok }),
		{Name: "is_list", Arity: 1}:  biIsList,
		{Name: "ground", Arity: 1}:   biGround,

		// Text
		{Name: "atom_string", Arity: 2}: biAtomString,
		{Name: "atom_length", Arity: 2}: biAtomLength,

		// Lists and collections
		{Name: "length", Arity: 2}:  biLength,
		{Name: "findall", Arity: 3}: biFindall,
		{Name: "msort", Arity: 2}:   biMsort,

		// Pattern matching
		{Name: "matches", Arity: 3}: biMatches,
		{Name: "regex", Arity: 3}:   biMatches,
		{Name: "matches", Arity: 2}: biMatchesSemidet,

		// Output
		{Name: "write", Arity: 1}:   biWrite,
		{Name: "print", Arity: 1}:   biWrite,
		{Name: "writeln", Arity: 1}: biWriteln,
		{Name: "nl", Arity: 0}:      biNl,
	}
}

// IsBuiltin reports whether key names a builtin predicate or control
// construct. Clauses for such keys are never consulted.
func IsBuiltin(key ast.Key) bool {
	if _, ok := builtins[key]; ok {
		return true
	}
	return isControl(key)
}

// Builtins returns the keys of all builtin predicates and control constructs.
func Builtins() []ast.Key {
	keys := make([]ast.Key, 0, len(builtins)+len(controlKeys))
	for k := range builtins {
		keys = append(keys, k)
	}
	keys = append(keys, controlKeys...)
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].Arity < keys[j].Arity
	})
	return keys
}

var controlKeys = []ast.Key{
	{Name: "true"}, {Name: "fail"}, {Name: "false"}, {Name: "!"},
	{Name: ",", Arity: 2}, {Name: ";", Arity: 2}, {Name: "->", Arity: 2},
	{Name: "\\+", Arity: 1}, {Name: "once", Arity: 1}, {Name: "ignore", Arity: 1},
	{Name: "forall", Arity: 2},
	{Name: "call", Arity: 1}, {Name: "call", Arity: 2}, {Name: "call", Arity: 3},
	{Name: "call", Arity: 4}, {Name: "call", Arity: 5}, {Name: "call", Arity: 6},
	{Name: "call", Arity: 7}, {Name: "call", Arity: 8},
}

func isControl(key ast.Key) bool {
	for _, k := range controlKeys {
		if k == key {
			return true
		}
	}
	return false
}

func isNumber(t ast.Term) bool {
	switch t.(type) {
	case ast.Int, ast.Float:
		return true
	}
	return false
}

func biUnify(m *machine, args []ast.Term) (bool, error) {
	return m.b.Unify(args[0], args[1]), nil
}

func biNotUnify(m *machine, args []ast.Term) (bool, error) {
	mark := m.b.Mark()
	ok := m.b.Unify(args[0], args[1])
	m.b.Undo(mark)
	return !ok, nil
}

func biCompare(test func(int) bool) builtin {
	return func(m *machine, args []ast.Term) (bool, error) {
		return test(m.b.Compare(args[0], args[1])), nil
	}
}

func biCompare3(m *machine, args []ast.Term) (bool, error) {
	var order ast.Atom
	switch c := m.b.Compare(args[1], args[2]); {
	case c < 0:
		order = "<"
	case c > 0:
		order = ">"
	default:
		order = "="
	}
	return m.b.Unify(args[0], order), nil
}

func biIs(m *machine, args []ast.Term) (bool, error) {
	v, err := m.b.eval(args[1])
	if err != nil {
		return false, err
	}
	return m.b.Unify(args[0], v), nil
}

func biArithCompare(test func(int) bool) builtin {
	return func(m *machine, args []ast.Term) (bool, error) {
		x, err := m.b.eval(args[0])
		if err != nil {
			return false, err
		}
		y, err := m.b.eval(args[1])
		if err != nil {
			return false, err
		}
		return test(compareNumbers(x, y)), nil
	}
}

func biType(test func(ast.Term) bool) builtin {
	return func(m *machine, args []ast.Term) (bool, error) {
		return test(m.b.Deref(args[0])), nil
	}
}

func biIsList(m *machine, args []ast.Term) (bool, error) {
	_, ok := m.properList(args[0])
	return ok, nil
}

func biGround(m *machine, args []ast.Term) (bool, error) {
	return len(ast.Vars(m.b.Resolve(args[0]))) == 0, nil
}

// properList walks a list under the current bindings.
func (m *machine) properList(t ast.Term) ([]ast.Term, bool) {
	var items []ast.Term
	for {
		t = m.b.Deref(t)
		switch v := t.(type) {
		case ast.Atom:
			return items, v == ast.Nil
		case *ast.Compound:
			if v.Kind() != ast.KindList {
				return nil, false
			}
			items = append(items, v.Args[0])
			t = v.Args[1]
		default:
			return nil, false
		}
	}
}

// text returns the textual content of an atomic argument.
func (m *machine) text(t ast.Term, what string) (string, error) {
	t = m.b.Deref(t)
	if _, ok := t.(*ast.Var); ok {
		return "", instantiationErr("%s is unbound", what)
	}
	s, ok := ast.Text(t)
	if !ok {
		return "", typeErr("%s must be text, got %s", what, t.String())
	}
	return s, nil
}

func biAtomString(m *machine, args []ast.Term) (bool, error) {
	a := m.b.Deref(args[0])
	if _, unbound := a.(*ast.Var); !unbound {
		s, err := m.text(a, "first argument")
		if err != nil {
			return false, err
		}
		return m.b.Unify(args[1], ast.String(s)), nil
	}
	s, err := m.text(args[1], "second argument")
	if err != nil {
		return false, err
	}
	return m.b.Unify(a, ast.Atom(s)), nil
}

func biAtomLength(m *machine, args []ast.Term) (bool, error) {
	s, err := m.text(args[0], "first argument")
	if err != nil {
		return false, err
	}
	return m.b.Unify(args[1], ast.Int(utf8.RuneCountInString(s))), nil
}

// MaxListLength bounds the lists that length/2 builds from an integer.
const MaxListLength = 1 << 20

func biLength(m *machine, args []ast.Term) (bool, error) {
	if items, ok := m.properList(args[0]); ok {
		return m.b.Unify(args[1], ast.Int(len(items))), nil
	}
	n, isInt := m.b.Deref(args[1]).(ast.Int)
	if !isInt {
		return false, instantiationErr("length/2 needs a proper list or an integer length")
	}
	if n < 0 {
		return false, nil
	}
	if n > MaxListLength {
		return false, evalErr("length/2 cannot build a list of %d elements (limit %d)", n, MaxListLength)
	}
	items := make([]ast.Term, n)
	for i := range items {
		items[i] = ast.NewVar("")
	}
	return m.b.Unify(args[0], ast.NewList(items...)), nil
}

func biFindall(m *machine, args []ast.Term) (bool, error) {
	var results []ast.Term
	err := m.subquery(args[1], func() bool {
		results = append(results, m.b.copyTerm(args[0]))
		return true
	})
	if err != nil {
		return false, err
	}
	return m.b.Unify(args[2], ast.NewList(results...)), nil
}

func biMsort(m *machine, args []ast.Term) (bool, error) {
	items, ok := m.properList(args[0])
	if !ok {
		return false, instantiationErr("msort/2 needs a proper list")
	}
	sorted := make([]ast.Term, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return m.b.Compare(sorted[i], sorted[j]) < 0 })
	return m.b.Unify(args[1], ast.NewList(sorted...)), nil
}

// biMatches implements matches(Pattern, Text, Result): Result is unified with
// true if Text matches Pattern in full and false otherwise.
func biMatches(m *machine, args []ast.Term) (bool, error) {
	ok, err := m.match(args[0], args[1])
	if err != nil {
		return false, err
	}
	result := ast.False
	if ok {
		result = ast.True
	}
	return m.b.Unify(args[2], result), nil
}

func biMatchesSemidet(m *machine, args []ast.Term) (bool, error) {
	return m.match(args[0], args[1])
}

func (m *machine) match(pattern, text ast.Term) (bool, error) {
	p, err := m.text(pattern, "pattern")
	if err != nil {
		return false, err
	}
	s, err := m.text(text, "text")
	if err != nil {
		return false, err
	}
	return MatchPattern(p, s)
}

// writeText renders t for write/1: atoms and strings without quotes.
func (m *machine) writeText(t ast.Term) string {
	t = m.b.Resolve(t)
	switch v := t.(type) {
	case ast.Atom:
		return string(v)
	case ast.String:
		return string(v)
	}
	return ast.Format(t)
}

func biWrite(m *machine, args []ast.Term) (bool, error) {
	_, err := fmt.Fprint(m.solver.out, m.writeText(args[0]))
	return err == nil, nil
}

func biWriteln(m *machine, args []ast.Term) (bool, error) {
	_, err := fmt.Fprintln(m.solver.out, m.writeText(args[0]))
	return err == nil, nil
}

func biNl(m *machine, _ []ast.Term) (bool, error) {
	_, err := fmt.Fprintln(m.solver.out)
	return err == nil, nil
}
