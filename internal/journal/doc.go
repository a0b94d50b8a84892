// Package journal records session lifecycle events to PostgreSQL.
//
// Events (opened, alias, closed) are accepted without blocking into a
// drop-oldest ring, batched, and written with pgx.Batch on size or interval.
// The journal is best-effort: a slow or unavailable database loses the
// oldest events rather than stalling the relay.
package journal
