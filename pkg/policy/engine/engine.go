package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MatthiasGr/trusted-connector/pkg/lucon/ast"
	"github.com/MatthiasGr/trusted-connector/pkg/lucon/parser"
	"github.com/MatthiasGr/trusted-connector/pkg/lucon/solver"
	"github.com/MatthiasGr/trusted-connector/pkg/lucon/theory"
)

// Recorder receives engine measurements. The metrics package provides the
// Prometheus implementation.
type Recorder interface {
	RecordDecision(decision, rule string, duration time.Duration)
	RecordTransformation(matched bool, duration time.Duration)
	RecordLoad(success bool, clauses int, duration time.Duration)
	RecordQuery(solutions int, duration time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) RecordDecision(string, string, time.Duration) {}
func (noopRecorder) RecordTransformation(bool, time.Duration)     {}
func (noopRecorder) RecordLoad(bool, int, time.Duration)          {}
func (noopRecorder) RecordQuery(int, time.Duration)               {}

// Engine is the usage-control decision engine. It owns one theory store;
// independent engines never share state.
//
// All methods are safe for concurrent use. Decisions and queries run in
// parallel against the snapshot current when they started, while loads are
// serialized and publish a new snapshot atomically.
type Engine struct {
	config   *EngineConfig
	store    *theory.Store
	parser   *parser.Parser
	logger   *slog.Logger
	tracer   trace.Tracer
	recorder Recorder
	output   io.Writer
	closed   atomic.Bool
}

// NewEngine creates an engine holding the empty theory.
func NewEngine(config *EngineConfig, logger *slog.Logger) (*Engine, error) {
	if config == nil {
		config = DefaultEngineConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	p := parser.NewParser()
	return &Engine{
		config:   config,
		store:    theory.NewStore(p, logger).WithExternal(ProjectedKeys()...),
		parser:   p,
		logger:   logger.With("component", "policy.engine"),
		tracer:   otel.Tracer("github.com/MatthiasGr/trusted-connector/pkg/policy/engine"),
		recorder: noopRecorder{},
		output:   io.Discard,
	}, nil
}

// WithTracer sets the tracer used for engine spans.
func (e *Engine) WithTracer(tracer trace.Tracer) *Engine {
	if tracer != nil {
		e.tracer = tracer
	}
	return e
}

// WithRecorder sets the metrics recorder.
func (e *Engine) WithRecorder(r Recorder) *Engine {
	if r != nil {
		e.recorder = r
	}
	return e
}

// WithOutput sets the writer used by the output builtins of policies.
func (e *Engine) WithOutput(w io.Writer) *Engine {
	if w != nil {
		e.output = w
	}
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() *EngineConfig {
	return e.config
}

// LoadPolicy parses src and makes it the active theory. name identifies the
// source in error messages. On failure the error is an *InvalidTheoryError
// and the previous theory stays active.
func (e *Engine) LoadPolicy(ctx context.Context, name, src string) (*theory.Snapshot, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	_, span := e.tracer.Start(ctx, "policy.load", trace.WithAttributes(
		attribute.String("lucon.policy.source", name),
		attribute.Int("lucon.policy.bytes", len(src)),
	))
	defer span.End()

	start := time.Now()
	snap, err := e.store.Load(src, name)
	duration := time.Since(start)
	if err != nil {
		e.recorder.RecordLoad(false, 0, duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid theory")
		e.logger.Warn("policy rejected", "source", name, "error", err)
		return nil, err
	}

	e.recorder.RecordLoad(true, snap.Len(), duration)
	span.SetAttributes(
		attribute.String("lucon.policy.version", snap.Version()),
		attribute.Int("lucon.policy.clauses", snap.Len()),
	)
	span.SetStatus(codes.Ok, "")
	return snap, nil
}

// ValidatePolicy parses and validates src without installing it. It reports
// the same errors LoadPolicy would.
func (e *Engine) ValidatePolicy(name, src string) (*theory.Snapshot, error) {
	return e.store.Compile(src, name)
}

// Theory returns the active theory snapshot.
func (e *Engine) Theory() *theory.Snapshot {
	return e.store.Current()
}

// ListRules returns the names of the rules of the active theory in
// declaration order.
func (e *Engine) ListRules() []string {
	return e.store.Current().Rules()
}

// TheoryText renders the active theory as source text.
func (e *Engine) TheoryText() string {
	return e.store.Current().Text()
}

// TheoryStructured returns the active theory in structured form.
func (e *Engine) TheoryStructured() *theory.Document {
	return e.store.Current().Structured()
}

func (e *Engine) newResolver(snap *theory.Snapshot, facts []*ast.Clause, logger *slog.Logger) *resolver {
	return &resolver{
		solver: solver.NewSolver(snap).WithOutput(e.output).WithLogger(logger),
		facts:  facts,
		logger: logger,
	}
}

// RequestDecision decides whether the message described by req may flow.
// It always returns a decision: requests that match no rule, fail to
// evaluate, or exceed the decision timeout are denied.
func (e *Engine) RequestDecision(ctx context.Context, req *DecisionRequest) *PolicyDecision {
	start := time.Now()
	if req == nil {
		req = &DecisionRequest{}
	}
	requestID := req.ID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	snap := e.store.Current()
	logger := e.logger.With("request_id", requestID)

	ctx, span := e.tracer.Start(ctx, "policy.decision", trace.WithAttributes(
		attribute.String("lucon.request_id", requestID),
		attribute.String("lucon.source", req.Source.ID),
		attribute.String("lucon.destination", req.Destination.ID),
		attribute.String("lucon.policy.version", snap.Version()),
	))
	defer span.End()

	decision := e.decide(ctx, snap, req, logger)
	decision.RequestID = requestID
	decision.PolicyVersion = snap.Version()
	decision.EvaluationTime = time.Since(start)

	span.SetAttributes(
		attribute.String("lucon.decision", string(decision.Decision)),
		attribute.String("lucon.rule", decision.Rule),
		attribute.Bool("lucon.obligation", decision.Obligation != nil),
	)
	e.recorder.RecordDecision(string(decision.Decision), decision.Rule, decision.EvaluationTime)

	logger.Debug("decision resolved",
		"destination", req.Destination.ID,
		"decision", decision.Decision,
		"rule", decision.Rule,
		"duration", decision.EvaluationTime)
	return decision
}

func (e *Engine) decide(ctx context.Context, snap *theory.Snapshot, req *DecisionRequest, logger *slog.Logger) (result *PolicyDecision) {
	if e.closed.Load() {
		return &PolicyDecision{Decision: Deny, Reason: "engine closed"}
	}
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic during evaluation: %v", p)
			trace.SpanFromContext(ctx).RecordError(err)
			logger.Error("decision evaluation panicked, denying", "error", err)
			result = &PolicyDecision{Decision: Deny, Reason: "evaluation failed"}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, e.config.DecisionTimeout)
	defer cancel()

	r := e.newResolver(snap, ProjectRequest(req), logger)
	decision, err := r.decide(ctx, req, e.config.LabelMode)
	switch {
	case err != nil:
		trace.SpanFromContext(ctx).RecordError(err)
		logger.Warn("decision evaluation failed, denying", "error", err)
		reason := "evaluation failed"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "decision timeout"
		}
		return &PolicyDecision{Decision: Deny, Reason: reason}
	case decision == nil:
		return &PolicyDecision{Decision: Deny, Reason: "no applicable rule"}
	}
	return decision
}

// RequestTransformations returns the label effects of passing through node.
// A node that matches no service yields empty label sets.
func (e *Engine) RequestTransformations(ctx context.Context, node *ServiceNode) (*TransformationDecision, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	if node == nil {
		node = &ServiceNode{}
	}

	start := time.Now()
	snap := e.store.Current()
	ctx, span := e.tracer.Start(ctx, "policy.transformation", trace.WithAttributes(
		attribute.String("lucon.node", node.ID),
		attribute.String("lucon.policy.version", snap.Version()),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.config.TransformationTimeout)
	defer cancel()

	result, err := e.newResolver(snap, ProjectNode(node), e.logger).transform(ctx, node)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transformation failed")
		return nil, &TimeoutError{Operation: "transformation", Cause: err}
	}

	e.recorder.RecordTransformation(len(result.Services) > 0, time.Since(start))
	span.SetAttributes(
		attribute.StringSlice("lucon.labels.add", result.LabelsToAdd),
		attribute.StringSlice("lucon.labels.remove", result.LabelsToRemove),
	)
	return result, nil
}

// Query runs a diagnostic goal against the active theory. With findAll unset
// at most one solution is returned; otherwise solutions are collected up to
// the configured maximum. Goals that do not parse yield a
// *MalformedGoalError.
func (e *Engine) Query(ctx context.Context, goalText string, findAll bool) ([]Solution, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	goal, err := e.parser.ParseGoal(goalText)
	if err != nil {
		return nil, &MalformedGoalError{Goal: goalText, Cause: err}
	}

	start := time.Now()
	snap := e.store.Current()
	ctx, span := e.tracer.Start(ctx, "policy.query", trace.WithAttributes(
		attribute.String("lucon.goal", goalText),
		attribute.Bool("lucon.find_all", findAll),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.config.QueryTimeout)
	defer cancel()

	limit := 1
	if findAll {
		limit = e.config.MaxSolutions
	}

	sols := solver.NewSolver(snap).
		WithOutput(e.output).
		WithLogger(e.logger).
		Solve(ctx, goal.Term, nil)
	defer sols.Close()

	results := make([]Solution, 0)
	for len(results) < limit && sols.Next() {
		sol := make(Solution, len(goal.Vars))
		for name, value := range sols.Bindings(goal.Vars) {
			sol[name] = ast.Format(value)
		}
		results = append(results, sol)
	}

	e.recorder.RecordQuery(len(results), time.Since(start))
	span.SetAttributes(attribute.Int("lucon.solutions", len(results)))
	if err := sols.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query stopped")
		return results, &TimeoutError{Operation: "query", Cause: err}
	}
	return results, nil
}

// Close shuts down the engine. Later loads, transformations and queries
// return ErrEngineClosed and decisions are denied.
func (e *Engine) Close() error {
	e.closed.Store(true)
	return nil
}
