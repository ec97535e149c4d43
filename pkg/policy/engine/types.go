package engine

import (
	"time"

	"github.com/MatthiasGr/trusted-connector/pkg/lucon/ast"
)

// Decision is the outcome of a usage-control decision.
type Decision string

const (
	// Allow permits the message to flow to its destination.
	Allow Decision = "ALLOW"

	// Deny blocks the message. It is the default when no rule applies.
	Deny Decision = "DENY"
)

// ServiceNode is a message endpoint.
type ServiceNode struct {
	// ID is the endpoint URI, e.g. "hdfs://some_url". It is matched against
	// has_endpoint patterns.
	ID string `json:"id"`

	// Name is an optional human-readable name.
	Name string `json:"name,omitempty"`

	// Properties are optional endpoint properties.
	Properties map[string]string `json:"properties,omitempty"`
}

// DecisionRequest asks whether a message may move from Source to Destination.
type DecisionRequest struct {
	// ID identifies the request in logs and traces. The engine assigns one
	// when empty.
	ID string `json:"id,omitempty"`

	// Source is the service the message comes from.
	Source ServiceNode `json:"source"`

	// Destination is the service the message goes to.
	Destination ServiceNode `json:"destination"`

	// Attributes are message attributes. Values may be strings, numbers or
	// booleans.
	Attributes map[string]any `json:"attributes,omitempty"`

	// Labels are the data-flow labels currently attached to the message. A nil
	// slice means the request carries no label context; an empty slice means
	// the message has no labels.
	Labels []string `json:"labels"`
}

// Obligation is a condition attached to an ALLOW decision that the enforcement
// point must satisfy.
type Obligation struct {
	// ID is the obligation identifier from has_obligation/2.
	ID string `json:"id"`

	// Action is the rendered prerequisite, e.g. "delete_after_days(30)".
	Action string `json:"action"`

	// AlternativeDecision applies when the enforcement point cannot honor
	// the obligation.
	AlternativeDecision Decision `json:"alternative_decision"`

	// ActionTerm is the prerequisite as a term.
	ActionTerm ast.Term `json:"-"`
}

// PolicyDecision is the answer to a DecisionRequest.
type PolicyDecision struct {
	// RequestID echoes the request ID.
	RequestID string `json:"request_id"`

	// Decision is ALLOW or DENY.
	Decision Decision `json:"decision"`

	// Obligation is set only for ALLOW decisions that carry an obligation.
	Obligation *Obligation `json:"obligation,omitempty"`

	// Rule names the rule that produced the decision. It is empty when the
	// fail-closed default applied.
	Rule string `json:"rule,omitempty"`

	// Reason explains default decisions.
	Reason string `json:"reason,omitempty"`

	// PolicyVersion identifies the theory the decision was made against.
	PolicyVersion string `json:"policy_version,omitempty"`

	// EvaluationTime is the time spent resolving the decision.
	EvaluationTime time.Duration `json:"evaluation_time"`
}

// TransformationDecision lists the label effects of passing through a service.
type TransformationDecision struct {
	// Services lists the services whose endpoint pattern matched the node.
	Services []string `json:"services"`

	// LabelsToAdd are the labels created by the matched services, sorted.
	LabelsToAdd []string `json:"labels_to_add"`

	// LabelsToRemove are the labels removed by the matched services, sorted.
	LabelsToRemove []string `json:"labels_to_remove"`
}

// Solution maps the named variables of a diagnostic goal to their rendered
// values.
type Solution map[string]string
