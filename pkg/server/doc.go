// Package server exposes the usage-control engine over HTTP.
//
// # Routes
//
//	POST /v1/decisions          decide whether a message may flow
//	POST /v1/transformations    label effects of a service node
//	PUT  /v1/policy             install a new theory (JSON or plain text)
//	GET  /v1/policy             active theory as text, ?format=json for the clause tree
//	GET  /v1/policy/versions    recorded versions, newest first (?limit=n)
//	GET  /v1/rules              rule names of the active theory
//	POST /v1/query              run a diagnostic goal
//	GET  /health, /ready        liveness and readiness probes
//	GET  /version               build information
//	GET  /metrics               Prometheus metrics, when enabled
//
// # Status Codes
//
// Payloads that fail to decode or validate are answered with 400, as are
// goals that do not parse. A theory the engine rejects is answered with 422
// and leaves the previous theory active. Queries that exceed their timeout
// get 504. Version history without a configured store gets 503.
//
// Decisions are always 200: evaluation failures are reported as DENY in the
// body.
//
// # Middleware
//
// Requests pass through request ID assignment (X-Request-ID, a UUID unless
// the client supplied one), access logging and panic recovery. API routes
// are additionally traced and counted per route pattern.
//
// # Basic Usage
//
//	srv, err := server.NewServer(cfg, server.Options{
//	    Engine:  eng,
//	    Manager: mgr,
//	    Metrics: collector,
//	    Logger:  logger,
//	})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx) // returns after ctx is cancelled and shutdown completes
package server
