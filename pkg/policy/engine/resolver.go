package engine

import (
	"context"
	"log/slog"

	"github.com/MatthiasGr/trusted-connector/pkg/lucon/ast"
	"github.com/MatthiasGr/trusted-connector/pkg/lucon/solver"
)

// decisionAtoms maps the decision vocabulary of policies onto decisions.
var decisionAtoms = map[string]Decision{
	"allow":  Allow,
	"accept": Allow,
	"permit": Allow,
	"deny":   Deny,
	"drop":   Deny,
	"reject": Deny,
}

// ParseDecision maps a policy decision atom onto a decision. Unknown atoms
// map to Deny and report false.
func ParseDecision(t ast.Term) (Decision, bool) {
	name, ok := ast.Text(t)
	if !ok {
		return Deny, false
	}
	d, ok := decisionAtoms[name]
	if !ok {
		return Deny, false
	}
	return d, true
}

// resolver answers decision and transformation requests against one theory
// snapshot. It lives for a single request.
type resolver struct {
	solver *solver.Solver
	facts  []*ast.Clause
	logger *slog.Logger
}

// all runs goal to exhaustion and returns the resolved values of vars, one
// row per solution, in solution order. Only the request deadline bounds it.
func (r *resolver) all(ctx context.Context, goal ast.Term, vars ...*ast.Var) ([][]ast.Term, error) {
	return r.collect(ctx, goal, 0, vars)
}

// collect returns at most max rows of goal, or every row when max is 0.
func (r *resolver) collect(ctx context.Context, goal ast.Term, max int, vars []*ast.Var) ([][]ast.Term, error) {
	sols := r.solver.Solve(ctx, goal, r.facts)
	defer sols.Close()

	var rows [][]ast.Term
	for (max == 0 || len(rows) < max) && sols.Next() {
		row := make([]ast.Term, len(vars))
		for i, v := range vars {
			row[i] = sols.Resolve(v)
		}
		rows = append(rows, row)
	}
	if n := sols.BranchErrors(); n > 0 {
		r.logger.Debug("query branches failed with evaluation errors",
			"goal", ast.Format(goal),
			"branches", n)
	}
	if err := sols.Err(); err != nil {
		return rows, err
	}
	return rows, ctx.Err()
}

// first returns the first solution of goal, or nil if there is none.
func (r *resolver) first(ctx context.Context, goal ast.Term, vars ...*ast.Var) ([]ast.Term, error) {
	rows, err := r.collect(ctx, goal, 1, vars)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// distinct returns the distinct values of the single variable v in first
// occurrence order.
func (r *resolver) distinct(ctx context.Context, goal ast.Term, v *ast.Var) ([]ast.Term, error) {
	rows, err := r.all(ctx, goal, v)
	seen := make(map[string]bool, len(rows))
	out := make([]ast.Term, 0, len(rows))
	for _, row := range rows {
		key := ast.Format(row[0])
		if !seen[key] {
			seen[key] = true
			out = append(out, row[0])
		}
	}
	return out, err
}

// matchesEndpoint reports whether service has an endpoint pattern matching
// id. An unbound pattern matches every identifier.
func (r *resolver) matchesEndpoint(ctx context.Context, service ast.Term, id string) (bool, error) {
	p := ast.NewVar("P")
	patterns, err := r.all(ctx, ast.NewCompound("has_endpoint", service, p), p)
	if err != nil {
		return false, err
	}
	for _, row := range patterns {
		if _, unbound := row[0].(*ast.Var); unbound {
			return true, nil
		}
		pattern, ok := ast.Text(row[0])
		if !ok {
			continue
		}
		matched, err := solver.MatchPattern(pattern, id)
		if err != nil {
			r.logger.Debug("endpoint pattern failed", "service", ast.Format(service), "error", err)
			continue
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

// targets reports whether one of rule's has_target terms designates the
// destination, either by identifier or through the endpoint pattern of the
// target service. An unbound target designates every destination.
func (r *resolver) targets(ctx context.Context, rule ast.Term, dest string) (bool, error) {
	t := ast.NewVar("T")
	targets, err := r.distinct(ctx, ast.NewCompound("has_target", rule, t), t)
	if err != nil {
		return false, err
	}
	for _, target := range targets {
		if _, unbound := target.(*ast.Var); unbound {
			return true, nil
		}
		if id, ok := ast.Text(target); ok && id == dest {
			return true, nil
		}
		matched, err := r.matchesEndpoint(ctx, target, dest)
		if err != nil || matched {
			return matched, err
		}
	}
	return false, nil
}

// labelsSatisfied applies the receives_label gate. labels is nil when the
// request carries no label context.
func (r *resolver) labelsSatisfied(ctx context.Context, rule ast.Term, labels map[string]bool, mode LabelMode) (bool, error) {
	l := ast.NewVar("L")
	required, err := r.distinct(ctx, ast.NewCompound("receives_label", rule, l), l)
	if err != nil || len(required) == 0 {
		return err == nil, err
	}
	if labels == nil && mode == LabelModeOptional {
		return true, nil
	}
	for _, label := range required {
		name, ok := ast.Text(label)
		if !ok || !labels[name] {
			return false, nil
		}
	}
	return true, nil
}

// outcome returns the decision a rule declares: a direct has_decision, or an
// obligation with its prerequisite and fallback. A rule with neither yields
// nil.
func (r *resolver) outcome(ctx context.Context, rule ast.Term) (*PolicyDecision, error) {
	d := ast.NewVar("D")
	row, err := r.first(ctx, ast.NewCompound("has_decision", rule, d), d)
	if err != nil {
		return nil, err
	}
	if row != nil {
		decision, known := ParseDecision(row[0])
		if !known {
			r.logger.Warn("unknown decision, denying",
				"rule", termName(rule),
				"decision", ast.Format(row[0]))
		}
		return &PolicyDecision{Decision: decision}, nil
	}

	o, a, alt := ast.NewVar("O"), ast.NewVar("A"), ast.NewVar("Alt")
	goal := ast.NewCompound(",",
		ast.NewCompound("has_obligation", rule, o),
		ast.NewCompound(",",
			ast.NewCompound("requires_prerequisite", o, a),
			ast.NewCompound("has_alternativedecision", o, alt)))
	row, err = r.first(ctx, goal, o, a, alt)
	if err != nil || row == nil {
		return nil, err
	}
	fallback, known := ParseDecision(row[2])
	if !known {
		r.logger.Warn("unknown alternative decision, denying",
			"rule", termName(rule),
			"decision", ast.Format(row[2]))
	}
	return &PolicyDecision{
		Decision: Allow,
		Obligation: &Obligation{
			ID:                  termName(row[0]),
			Action:              ast.Format(row[1]),
			AlternativeDecision: fallback,
			ActionTerm:          row[1],
		},
	}, nil
}

// decide resolves a decision request. It returns nil when no rule applies.
func (r *resolver) decide(ctx context.Context, req *DecisionRequest, mode LabelMode) (*PolicyDecision, error) {
	var labels map[string]bool
	if req.Labels != nil {
		labels = make(map[string]bool, len(req.Labels))
		for _, l := range req.Labels {
			labels[l] = true
		}
	}

	name := ast.NewVar("R")
	rules, err := r.distinct(ctx, ast.NewCompound("rule", name), name)
	if err != nil {
		return nil, err
	}

	for _, rule := range rules {
		if _, unbound := rule.(*ast.Var); unbound {
			continue
		}
		ok, err := r.targets(ctx, rule, req.Destination.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		ok, err = r.labelsSatisfied(ctx, rule, labels, mode)
		if err != nil {
			return nil, err
		}
		if !ok {
			r.logger.Debug("rule skipped by label precondition", "rule", termName(rule))
			continue
		}
		decision, err := r.outcome(ctx, rule)
		if err != nil {
			return nil, err
		}
		if decision == nil {
			r.logger.Debug("rule declares no decision or obligation", "rule", termName(rule))
			continue
		}
		decision.Rule = termName(rule)
		return decision, nil
	}
	return nil, nil
}

// transform collects the label effects of every service whose endpoint
// pattern matches the node.
func (r *resolver) transform(ctx context.Context, node *ServiceNode) (*TransformationDecision, error) {
	result := &TransformationDecision{
		Services:       []string{},
		LabelsToAdd:    []string{},
		LabelsToRemove: []string{},
	}

	s := ast.NewVar("S")
	services, err := r.distinct(ctx, ast.NewCompound("has_endpoint", s, ast.NewVar("_")), s)
	if err != nil {
		return nil, err
	}

	var add, remove []string
	for _, service := range services {
		if _, unbound := service.(*ast.Var); unbound {
			continue
		}
		matched, err := r.matchesEndpoint(ctx, service, node.ID)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}
		result.Services = append(result.Services, termName(service))

		l := ast.NewVar("L")
		created, err := r.distinct(ctx, ast.NewCompound("creates_label", service, l), l)
		if err != nil {
			return nil, err
		}
		removed, err := r.distinct(ctx, ast.NewCompound("removes_label", service, l), l)
		if err != nil {
			return nil, err
		}
		for _, t := range created {
			add = append(add, termName(t))
		}
		for _, t := range removed {
			remove = append(remove, termName(t))
		}
	}

	result.LabelsToAdd = uniqueSorted(add)
	result.LabelsToRemove = uniqueSorted(remove)
	return result, nil
}

// termName renders a term used as an identifier: the text of atomic terms,
// the source form otherwise.
func termName(t ast.Term) string {
	if s, ok := ast.Text(t); ok {
		return s
	}
	return ast.Format(t)
}
