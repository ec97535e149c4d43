// Package solver evaluates goals against a LUCON theory.
//
// Resolution is depth-first and left-to-right. Clauses are tried in
// declaration order and builtins are resolved before any clause with the same
// name and arity. The search state is an explicit choice point stack, so a
// query is a lazy sequence: taking the first solution and draining all of
// them are the same iteration stopped at different points.
//
//	s := solver.NewSolver(snapshot)
//	sols := s.Solve(ctx, goal.Term, projectedFacts)
//	for sols.Next() {
//	    fmt.Println(sols.Bindings(goal.Vars))
//	}
//
// Unification has no occurs check. Bindings are recorded on a trail and
// undone on backtracking. A builtin that raises an *EvalError fails only the
// branch it was called from; the error is logged at debug level and counted.
package solver
