package solver

import (
	"fmt"

	"github.com/MatthiasGr/trusted-connector/pkg/lucon/ast"
	"github.com/MatthiasGr/trusted-connector/pkg/lucon/parser"
)

// preludeSource defines library predicates that a theory may use without
// defining them. A theory that defines one of these predicates replaces it.
const preludeSource = `
member(X, [X|_]).
member(X, [_|T]) :- member(X, T).
memberchk(X, L) :- member(X, L), !.
append([], L, L).
append([H|T], L, [H|R]) :- append(T, L, R).
select(X, [X|T], T).
select(X, [H|T], [H|R]) :- select(X, T, R).
last([X], X) :- !.
last([_|T], X) :- last(T, X).
nth0(I, L, E) :- nth_(L, 0, I, E).
nth1(I, L, E) :- nth_(L, 1, I, E).
nth_([H|_], B, B, H).
nth_([_|T], B0, I, E) :- B1 is B0 + 1, nth_(T, B1, I, E).
`

var prelude = mustIndex(preludeSource)

func mustIndex(src string) map[ast.Key][]*ast.Clause {
	clauses, err := parser.NewParser().ParseString(src, "<prelude>")
	if err != nil {
		panic(fmt.Sprintf("lucon prelude: %v", err))
	}
	idx := make(map[ast.Key][]*ast.Clause)
	for _, c := range clauses {
		idx[c.Key()] = append(idx[c.Key()], c)
	}
	return idx
}

// PreludeKeys returns the keys of the library predicates.
func PreludeKeys() []ast.Key {
	keys := make([]ast.Key, 0, len(prelude))
	for k := range prelude {
		keys = append(keys, k)
	}
	return keys
}
