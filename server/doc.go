// Package server is the flowrun HTTP server: a Gin engine served over
// HTTP/1.1 and h2c and run as a component with lifecycle and health.
//
// ApplyMiddleware installs, outermost first: panic recovery, request ids,
// OpenTelemetry tracing and request metrics, CORS, the optional per-client
// rate limit, the body size cap and the request log.
//
// RegisterDefaultEndpoints adds the operational routes:
//
//   - /health: aggregated component health, 503 when any is unhealthy
//   - /livez and /readyz: liveness and readiness probes
//   - /info: build information and uptime
//   - /metrics: Go runtime counters
package server
