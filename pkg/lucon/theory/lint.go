package theory

import (
	"fmt"
	"sort"

	"github.com/MatthiasGr/trusted-connector/pkg/lucon/ast"
	luconErrors "github.com/MatthiasGr/trusted-connector/pkg/lucon/errors"
	"github.com/MatthiasGr/trusted-connector/pkg/lucon/solver"
)

// Vocabulary lists the predicates the decision engine reads from a policy.
var Vocabulary = []ast.Key{
	{Name: "rule", Arity: 1},
	{Name: "has_target", Arity: 2},
	{Name: "has_decision", Arity: 2},
	{Name: "receives_label", Arity: 2},
	{Name: "has_obligation", Arity: 2},
	{Name: "requires_prerequisite", Arity: 2},
	{Name: "has_alternativedecision", Arity: 2},
	{Name: "service", Arity: 1},
	{Name: "has_endpoint", Arity: 2},
	{Name: "creates_label", Arity: 2},
	{Name: "removes_label", Arity: 2},
	{Name: "has_property", Arity: 3},
	{Name: "has_capability", Arity: 2},
}

// metaArgs gives the argument positions of builtins that are called as goals.
var metaArgs = map[ast.Key][]int{
	{Name: ",", Arity: 2}:       {0, 1},
	{Name: ";", Arity: 2}:       {0, 1},
	{Name: "->", Arity: 2}:      {0, 1},
	{Name: "\\+", Arity: 1}:     {0},
	{Name: "once", Arity: 1}:    {0},
	{Name: "ignore", Arity: 1}:  {0},
	{Name: "call", Arity: 1}:    {0},
	{Name: "forall", Arity: 2}:  {0, 1},
	{Name: "findall", Arity: 3}: {1},
}

type definitionWarning struct {
	loc ast.Location
	msg string
}

// definitionWarnings reports body calls to predicates that nothing defines
// and uncalled definitions whose indicator is close to the policy
// vocabulary. external names predicates supplied at query time.
func definitionWarnings(clauses []*ast.Clause, external map[ast.Key]bool) []definitionWarning {
	defined := make(map[ast.Key]bool)
	for _, c := range clauses {
		defined[c.Key()] = true
	}
	vocabulary := make(map[ast.Key]bool, len(Vocabulary))
	for _, k := range Vocabulary {
		vocabulary[k] = true
	}
	prelude := make(map[ast.Key]bool)
	for _, k := range solver.PreludeKeys() {
		prelude[k] = true
	}
	known := func(k ast.Key) bool {
		return defined[k] || vocabulary[k] || prelude[k] || external[k] || solver.IsBuiltin(k)
	}

	var candidates []string
	for k := range defined {
		candidates = append(candidates, k.String())
	}
	for k := range external {
		candidates = append(candidates, k.String())
	}
	for _, keys := range [][]ast.Key{Vocabulary, solver.PreludeKeys(), solver.Builtins()} {
		for _, k := range keys {
			candidates = append(candidates, k.String())
		}
	}
	sort.Strings(candidates)

	var warnings []definitionWarning
	called := make(map[ast.Key]bool)
	reported := make(map[ast.Key]bool)
	for _, c := range clauses {
		if c.Body == nil || isHostBinding(c.Body) {
			continue
		}
		eachGoal(c.Body, func(k ast.Key) {
			called[k] = true
			if known(k) || reported[k] {
				return
			}
			reported[k] = true
			msg := fmt.Sprintf("call to undefined predicate %s", k)
			if hint := luconErrors.SuggestPredicate(k.String(), candidates); hint != "" {
				msg += ", " + hint
			}
			warnings = append(warnings, definitionWarning{loc: c.Location, msg: msg})
		})
	}

	names := make([]string, len(Vocabulary))
	for i, k := range Vocabulary {
		names[i] = k.String()
	}
	for _, c := range clauses {
		k := c.Key()
		if vocabulary[k] || called[k] || reported[k] || solver.IsBuiltin(k) {
			continue
		}
		if hint := luconErrors.SuggestPredicate(k.String(), names); hint != "" {
			reported[k] = true
			warnings = append(warnings, definitionWarning{
				loc: c.Location,
				msg: fmt.Sprintf("%s is not policy vocabulary and is never called, %s", k, hint),
			})
		}
	}
	return warnings
}

// eachGoal calls fn with the key of every goal in body, descending into
// control constructs and meta-call arguments.
func eachGoal(body ast.Term, fn func(ast.Key)) {
	switch g := body.(type) {
	case ast.Atom:
		fn(ast.Key{Name: string(g)})
	case *ast.Compound:
		k := ast.Key{Name: g.Functor, Arity: len(g.Args)}
		fn(k)
		for _, i := range metaArgs[k] {
			eachGoal(g.Args[i], fn)
		}
	}
}
