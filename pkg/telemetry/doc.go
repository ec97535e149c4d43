// Package telemetry groups the observability building blocks of the policy
// decision point.
//
// # Components
//
//   - logging: slog loggers configured from telemetry.logging, with request
//     ID and policy version carried through the context
//   - metrics: Prometheus collectors for HTTP requests, decisions,
//     transformations, queries and policy loads
//   - tracing: OpenTelemetry tracer exporting over OTLP/gRPC
//   - health: liveness, readiness and version endpoints
//
// # Usage
//
//	logger, err := logging.New(cfg.Telemetry.Logging, logging.Options{Service: "lucon"})
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	defer tracer.Shutdown(ctx)
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
//	eng.WithTracer(tracer.Tracer()).WithRecorder(collector)
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("policy", health.PolicyCheck(mgr))
//
// Every component accepts its disabled configuration: a disabled tracer is a
// noop, and a nil collector is skipped by the server.
package telemetry
