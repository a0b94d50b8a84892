// Package api is an HTTP client for the relay's operational endpoints.
//
// Endpoints, served on the metrics port:
//   - GET /health: relay, journal and version status (503 when unhealthy)
//   - GET /metrics: Prometheus exposition
//
// The Health types here are also what cmd/relay encodes, so both sides
// share one wire shape.
package api
