// Package health provides liveness and readiness probes.
//
// # Endpoints
//
//   - /health: Liveness probe, answers 200 while the process runs
//   - /ready: Readiness probe, answers 503 until every check passes
//   - /version: Build information
//
// The paths are configurable through telemetry.health.
//
// # Usage
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("policy", health.PolicyCheck(mgr))
//	checker.RegisterCheck("store", health.StoreCheck(st))
//
//	mux.HandleFunc("GET /health", checker.LivenessHandler())
//	mux.HandleFunc("GET /ready", checker.ReadinessHandler())
//
// A node is ready once a policy has been installed. Before that every flow
// is denied, so routing traffic to it would block all messages.
package health
