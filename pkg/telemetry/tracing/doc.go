// Package tracing provides OpenTelemetry tracing for the policy engine.
//
// # Overview
//
// When enabled, New builds an SDK tracer provider exporting over OTLP/gRPC,
// installs it as the global provider together with the W3C Trace Context
// propagator, and returns a Tracer wrapping it. The engine creates spans for
// policy loads, decisions, transformations and queries through the global
// provider, so enabling tracing requires no further wiring.
//
// When disabled, New returns a Tracer backed by the noop provider.
//
// # Sampling Strategies
//
//   - always: sample all traces
//   - never: sample no traces
//   - ratio: sample a fraction of traces by trace ID (default)
//
// Samplers respect the sampling decision of an incoming traceparent.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracer.Shutdown(context.Background())
//
//	handler = tracing.HTTPMiddleware(tracer.Tracer(), "POST /v1/decisions", handler)
package tracing
