package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MatthiasGr/trusted-connector/pkg/config"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/engine"
)

// otherRule aggregates rule names beyond the cardinality limit.
const otherRule = "other"

// Collector is the main orchestrator for all Prometheus metrics of the
// policy engine. It implements engine.Recorder and records HTTP request
// metrics for the integration layer.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Engine metrics
	policyMetrics *PolicyMetrics

	// HTTP metrics
	requestMetrics *RequestMetrics

	// Rule names come from policy text, so their number is not bounded by
	// the code.
	cardinalityLimiter *CardinalityLimiter
}

var _ engine.Recorder = (*Collector)(nil)

// NewCollector creates a new metrics collector with the specified
// configuration. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := config.Default().Telemetry.Metrics
//	collector := metrics.NewCollector(&cfg, nil)
//	eng.WithRecorder(collector)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		policyMetrics:      NewPolicyMetrics(cfg, registry),
		requestMetrics:     NewRequestMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(1000),
	}
}

// RecordDecision records a resolved decision. An empty rule means the
// default decision applied.
func (c *Collector) RecordDecision(decision, rule string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	if rule != "" && !c.cardinalityLimiter.Allow(rule) {
		rule = otherRule
	}
	c.policyMetrics.RecordDecision(decision, rule, duration)
}

// RecordTransformation records a transformation lookup. matched reports
// whether any service matched the node.
func (c *Collector) RecordTransformation(matched bool, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.policyMetrics.RecordTransformation(matched, duration)
}

// RecordLoad records a policy load attempt. clauses is the size of the
// installed theory and is ignored for failed loads.
func (c *Collector) RecordLoad(success bool, clauses int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.policyMetrics.RecordLoad(success, clauses, duration)
}

// RecordQuery records a diagnostic query.
func (c *Collector) RecordQuery(solutions int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.policyMetrics.RecordQuery(solutions, duration)
}

// UpdateRules sets the number of rules of the active theory.
func (c *Collector) UpdateRules(rules int) {
	if !c.config.Enabled {
		return
	}

	c.policyMetrics.theoryRules.Set(float64(rules))
}

// RecordRequest records a completed HTTP request.
func (c *Collector) RecordRequest(route, method string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.requestMetrics.RecordRequest(route, method, status, duration)
}

// TrackInFlight increments the in-flight request gauge and returns the
// function that decrements it.
func (c *Collector) TrackInFlight() func() {
	if !c.config.Enabled {
		return func() {}
	}

	c.requestMetrics.inFlight.Inc()
	return c.requestMetrics.inFlight.Dec
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label value is allowed. Returns true if the value
// already exists or if the cardinality limit has not been reached yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
