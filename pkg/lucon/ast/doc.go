// Package ast defines the term model of the LUCON policy language.
//
// A policy is a Horn-clause theory: an ordered sequence of facts and rules
// built from terms. Terms are immutable values of the following kinds:
//
//   - Atom: a symbolic constant such as deleteAfterOneMonth or drop
//   - Int and Float: numbers
//   - String: a double-quoted string such as "hdfs.*"
//   - *Var: a logic variable, identified by pointer
//   - *Compound: a functor applied to an ordered argument list; lists are
//     compounds with the '.' functor terminated by the [] atom
//
// Clauses pair a head term with a body term. Facts have the body true.
//
// # Rendering
//
// Terms render back to re-parseable source text through String and Format.
// Operators are written infix or prefix according to the standard operator
// table, with parentheses inserted only where priorities require them:
//
//	move(N, X, Y, Z) :- N > 1, M is N - 1, move(M, X, Z, Y)
//
// The structured form (Node) is a JSON-friendly tree used for introspection.
package ast
