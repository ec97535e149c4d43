// Package logging builds the structured logger used across the policy
// engine.
//
// # Overview
//
// The package wraps Go's standard log/slog package to provide:
//   - Logger construction from the telemetry.logging configuration section
//   - JSON and text output formats
//   - Request-scoped fields carried in context.Context
//
// Components never create their own handlers. They accept a *slog.Logger,
// fall back to slog.Default(), and tag their records with "component".
//
// # Usage
//
//	logger, err := logging.New(cfg.Telemetry.Logging, logging.Options{Service: "lucon"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logging.FromContext(ctx, logger).Info("decision resolved")  // includes request_id
//
// When the context carries a valid OpenTelemetry span, FromContext also
// attaches trace_id and span_id so log records can be joined with traces.
package logging
