// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Live and total relay sessions
//   - Frame routing outcomes by frame kind
//   - Inbound ring overflow (oldest-dropped) counts
//   - Registry size
//   - Which session task finished first
package metrics
