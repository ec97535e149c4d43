package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/MatthiasGr/trusted-connector/pkg/lucon/ast"
)

// Fact predicates projected from requests. They are visible to one query only
// and never enter the theory.
const (
	factSource          = "msg_source"
	factDestination     = "msg_destination"
	factSourceName      = "msg_source_name"
	factDestinationName = "msg_destination_name"
	factSourceProp      = "msg_source_property"
	factDestinationProp = "msg_destination_property"
	factAttribute       = "msg_attribute"
	factLabel           = "msg_label"
	factNode            = "node"
	factNodeName        = "node_name"
	factNodeProperty    = "node_property"
)

// ProjectedKeys returns the predicates that ProjectRequest and ProjectNode
// supply.
func ProjectedKeys() []ast.Key {
	return []ast.Key{
		{Name: factSource, Arity: 1},
		{Name: factDestination, Arity: 1},
		{Name: factSourceName, Arity: 1},
		{Name: factDestinationName, Arity: 1},
		{Name: factSourceProp, Arity: 2},
		{Name: factDestinationProp, Arity: 2},
		{Name: factAttribute, Arity: 2},
		{Name: factLabel, Arity: 1},
		{Name: factNode, Arity: 1},
		{Name: factNodeName, Arity: 1},
		{Name: factNodeProperty, Arity: 2},
	}
}

// ProjectRequest converts a decision request into transient facts.
func ProjectRequest(req *DecisionRequest) []*ast.Clause {
	var facts []*ast.Clause
	add := func(name string, args ...ast.Term) {
		facts = append(facts, ast.NewFact(ast.NewCompound(name, args...)))
	}

	add(factSource, ast.String(req.Source.ID))
	add(factDestination, ast.String(req.Destination.ID))
	if req.Source.Name != "" {
		add(factSourceName, ast.String(req.Source.Name))
	}
	if req.Destination.Name != "" {
		add(factDestinationName, ast.String(req.Destination.Name))
	}
	for _, k := range sortedKeys(req.Source.Properties) {
		add(factSourceProp, ast.String(k), ast.String(req.Source.Properties[k]))
	}
	for _, k := range sortedKeys(req.Destination.Properties) {
		add(factDestinationProp, ast.String(k), ast.String(req.Destination.Properties[k]))
	}
	for _, k := range sortedKeys(req.Attributes) {
		add(factAttribute, ast.String(k), attributeTerm(req.Attributes[k]))
	}
	for _, l := range uniqueSorted(req.Labels) {
		add(factLabel, ast.Atom(l))
	}
	return facts
}

// ProjectNode converts a service node into transient facts for
// transformation queries.
func ProjectNode(node *ServiceNode) []*ast.Clause {
	facts := []*ast.Clause{
		ast.NewFact(ast.NewCompound(factNode, ast.String(node.ID))),
	}
	if node.Name != "" {
		facts = append(facts, ast.NewFact(ast.NewCompound(factNodeName, ast.String(node.Name))))
	}
	for _, k := range sortedKeys(node.Properties) {
		facts = append(facts, ast.NewFact(ast.NewCompound(factNodeProperty,
			ast.String(k), ast.String(node.Properties[k]))))
	}
	return facts
}

// attributeTerm maps an attribute value onto a ground term: numbers become
// numbers, booleans the atoms true and false, everything else a string.
func attributeTerm(v any) ast.Term {
	switch x := v.(type) {
	case nil:
		return ast.Atom("null")
	case string:
		return ast.String(x)
	case bool:
		if x {
			return ast.True
		}
		return ast.Atom("false")
	case int:
		return ast.Int(x)
	case int32:
		return ast.Int(x)
	case int64:
		return ast.Int(x)
	case uint32:
		return ast.Int(x)
	case float32:
		return floatTerm(float64(x))
	case float64:
		return floatTerm(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return ast.Int(i)
		}
		if f, err := x.Float64(); err == nil {
			return ast.Float(f)
		}
		return ast.String(x.String())
	default:
		return ast.String(fmt.Sprint(x))
	}
}

// floatTerm keeps integral values as integers so that JSON-decoded numbers
// unify with integer literals in policies.
func floatTerm(f float64) ast.Term {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return ast.Int(int64(f))
	}
	return ast.Float(f)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func uniqueSorted(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
