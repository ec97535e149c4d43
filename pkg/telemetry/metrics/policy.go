package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MatthiasGr/trusted-connector/pkg/config"
)

// PolicyMetrics tracks metrics of the decision engine.
//
// Metrics (with the default namespace and subsystem):
//   - lucon_policy_decisions_total: Decisions by outcome and rule
//   - lucon_policy_decision_duration_seconds: Decision latency
//   - lucon_policy_transformations_total: Transformation lookups by match
//   - lucon_policy_transformation_duration_seconds: Transformation latency
//   - lucon_policy_loads_total: Policy loads by result
//   - lucon_policy_load_duration_seconds: Parse and validation time
//   - lucon_policy_theory_clauses: Clauses of the active theory
//   - lucon_policy_theory_rules: Rules of the active theory
//   - lucon_policy_last_load_timestamp_seconds: Time of the last successful load
//   - lucon_policy_queries_total: Diagnostic queries
//   - lucon_policy_query_solutions: Solutions per diagnostic query
type PolicyMetrics struct {
	decisionsTotal   *prometheus.CounterVec
	decisionDuration *prometheus.HistogramVec

	transformationsTotal   *prometheus.CounterVec
	transformationDuration prometheus.Histogram

	loadsTotal    *prometheus.CounterVec
	loadDuration  prometheus.Histogram
	theoryClauses prometheus.Gauge
	theoryRules   prometheus.Gauge
	lastLoad      prometheus.Gauge

	queriesTotal   prometheus.Counter
	querySolutions prometheus.Histogram
	queryDuration  prometheus.Histogram
}

// NewPolicyMetrics creates and registers policy metrics with the provided registry.
func NewPolicyMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PolicyMetrics {
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help}
	}
	histogram := func(name, help string, buckets []float64) prometheus.HistogramOpts {
		return prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		}
	}

	pm := &PolicyMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts(opts("decisions_total", "Total number of flow decisions")),
			[]string{"decision", "rule"},
		),
		decisionDuration: prometheus.NewHistogramVec(
			histogram("decision_duration_seconds", "Duration of flow decisions in seconds", cfg.DurationBuckets),
			[]string{"decision"},
		),

		transformationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts(opts("transformations_total", "Total number of label transformation lookups")),
			[]string{"matched"},
		),
		transformationDuration: prometheus.NewHistogram(
			histogram("transformation_duration_seconds", "Duration of label transformation lookups in seconds", cfg.DurationBuckets),
		),

		loadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts(opts("loads_total", "Total number of policy load attempts")),
			[]string{"result"},
		),
		loadDuration: prometheus.NewHistogram(
			// Loads parse and validate whole theories, so they run longer than decisions.
			histogram("load_duration_seconds", "Duration of policy parsing and validation in seconds",
				prometheus.ExponentialBuckets(0.0001, 4, 10)),
		),
		theoryClauses: prometheus.NewGauge(
			prometheus.GaugeOpts(opts("theory_clauses", "Number of clauses in the active theory")),
		),
		theoryRules: prometheus.NewGauge(
			prometheus.GaugeOpts(opts("theory_rules", "Number of rules in the active theory")),
		),
		lastLoad: prometheus.NewGauge(
			prometheus.GaugeOpts(opts("last_load_timestamp_seconds", "Unix time of the last successful policy load")),
		),

		queriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts(opts("queries_total", "Total number of diagnostic queries")),
		),
		querySolutions: prometheus.NewHistogram(
			histogram("query_solutions", "Number of solutions returned per diagnostic query",
				prometheus.ExponentialBuckets(1, 4, 6)),
		),
		queryDuration: prometheus.NewHistogram(
			histogram("query_duration_seconds", "Duration of diagnostic queries in seconds", cfg.DurationBuckets),
		),
	}

	registry.MustRegister(
		pm.decisionsTotal,
		pm.decisionDuration,
		pm.transformationsTotal,
		pm.transformationDuration,
		pm.loadsTotal,
		pm.loadDuration,
		pm.theoryClauses,
		pm.theoryRules,
		pm.lastLoad,
		pm.queriesTotal,
		pm.querySolutions,
		pm.queryDuration,
	)

	return pm
}

// RecordDecision records a flow decision.
//
// Example:
//
//	pm.RecordDecision("ALLOW", "deleteAfterOneMonth", 150*time.Microsecond)
func (pm *PolicyMetrics) RecordDecision(decision, rule string, duration time.Duration) {
	pm.decisionsTotal.WithLabelValues(decision, rule).Inc()
	pm.decisionDuration.WithLabelValues(decision).Observe(duration.Seconds())
}

// RecordTransformation records a label transformation lookup.
func (pm *PolicyMetrics) RecordTransformation(matched bool, duration time.Duration) {
	pm.transformationsTotal.WithLabelValues(strconv.FormatBool(matched)).Inc()
	pm.transformationDuration.Observe(duration.Seconds())
}

// RecordLoad records a policy load. The theory gauges only change on success.
func (pm *PolicyMetrics) RecordLoad(success bool, clauses int, duration time.Duration) {
	pm.loadDuration.Observe(duration.Seconds())
	if !success {
		pm.loadsTotal.WithLabelValues("failure").Inc()
		return
	}
	pm.loadsTotal.WithLabelValues("success").Inc()
	pm.theoryClauses.Set(float64(clauses))
	pm.lastLoad.SetToCurrentTime()
}

// RecordQuery records a diagnostic query.
func (pm *PolicyMetrics) RecordQuery(solutions int, duration time.Duration) {
	pm.queriesTotal.Inc()
	pm.querySolutions.Observe(float64(solutions))
	pm.queryDuration.Observe(duration.Seconds())
}
