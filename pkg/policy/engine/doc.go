// Package engine decides whether messages may flow between services of a
// message-oriented service mesh, based on a usage-control policy written as
// a LUCON theory.
//
// # Architecture
//
// The engine uses a three-layer design:
//
//  1. Fact Projector - Turns a request into transient facts visible to one query
//  2. Resolvers - Query the theory to find the applicable rule or the label effects of a service
//  3. Engine - Owns the theory store and wires timeouts, tracing, metrics, and logging
//
// # Decision Flow
//
//	DecisionRequest
//	       ↓
//	Project msg_* facts (source, destination, attributes, labels)
//	       ↓
//	For each rule(R) in declaration order:
//	  has_target(R, T) designates the destination?    (identifier or has_endpoint regex)
//	  receives_label(R, L) satisfied by the labels?   (see LabelMode)
//	  has_decision(R, D)                              → decision D
//	  has_obligation / requires_prerequisite /
//	  has_alternativedecision                         → ALLOW with Obligation
//	       ↓
//	First applicable rule wins; no applicable rule → DENY
//
// # Basic Usage
//
//	eng, err := engine.NewEngine(engine.DefaultEngineConfig(), logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := eng.LoadPolicy(ctx, "policy.pl", policyText); err != nil {
//	    var invalid *engine.InvalidTheoryError
//	    if errors.As(err, &invalid) {
//	        // the previous policy is still active
//	    }
//	}
//
//	decision := eng.RequestDecision(ctx, &engine.DecisionRequest{
//	    Source:      engine.ServiceNode{ID: "paho:tcp://broker:1883/sensors"},
//	    Destination: engine.ServiceNode{ID: "hdfs://some_url"},
//	    Labels:      []string{"private"},
//	})
//	if decision.Obligation != nil {
//	    // enforce decision.Obligation.Action or apply AlternativeDecision
//	}
//
// # Fail-Closed Behavior
//
// RequestDecision always returns a decision. Requests that match no rule,
// whose evaluation fails, or that exceed the decision timeout are denied.
// Builtin evaluation errors inside rule bodies only fail the search branch
// that raised them.
//
// # Thread Safety
//
// The engine is safe for concurrent use. Loads publish a new immutable theory
// snapshot; decisions in flight keep using the snapshot they started with.
package engine
