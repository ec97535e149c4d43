// Package metrics provides Prometheus metrics for the policy engine.
//
// # Overview
//
// Collector implements engine.Recorder, so attaching it to an engine is all
// that is needed to export decision, transformation, load and query
// metrics. The HTTP integration layer records request metrics through the
// same collector.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	eng.WithRecorder(collector)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// # Metrics Categories
//
//   - Decision Metrics: decisions by outcome and matched rule, latency
//   - Transformation Metrics: lookups by whether a service matched, latency
//   - Theory Metrics: load results, clause and rule counts, last load time
//   - Query Metrics: diagnostic query count, solutions, latency
//   - HTTP Metrics: requests by route and status, latency, in flight
//
// # Cardinality Management
//
// Rule names come from policy text. Beyond 1000 distinct rule names further
// rules are counted under the label value "other".
package metrics
