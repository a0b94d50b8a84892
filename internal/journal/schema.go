package journal

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS relay_session_events (
		id          BIGSERIAL PRIMARY KEY,
		instance_id TEXT NOT NULL,
		conn_id     TEXT NOT NULL,
		kind        TEXT NOT NULL,
		alias       TEXT NOT NULL DEFAULT '',
		remote_addr TEXT NOT NULL DEFAULT '',
		task        TEXT NOT NULL DEFAULT '',
		duration_ms BIGINT NOT NULL DEFAULT 0,
		occurred_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS relay_session_events_conn_id_idx
		ON relay_session_events (conn_id)`,
}

const insertEvent = `
	INSERT INTO relay_session_events
		(instance_id, conn_id, kind, alias, remote_addr, task, duration_ms, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// EnsureSchema creates the journal table and index if missing.
func EnsureSchema(ctx context.Context, db Execer) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure journal schema: %w", err)
		}
	}
	return nil
}
