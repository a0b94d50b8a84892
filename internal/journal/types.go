package journal

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind identifies a session event.
type Kind string

const (
	KindOpened Kind = "opened"
	KindAlias  Kind = "alias"
	KindClosed Kind = "closed"
)

// Event is one session lifecycle event.
type Event struct {
	Kind       Kind
	ConnID     string
	Alias      string        // alias only
	RemoteAddr string        // opened only
	Task       string        // closed only: task that finished first
	Duration   time.Duration // closed only
	At         time.Time
}

// BatchSender sends queued statements. *pgxpool.Pool satisfies it.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Execer runs a single statement. *pgxpool.Pool satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Config configures the journal writer.
type Config struct {
	InstanceID    string        // Stored with every row
	BatchSize     int           // Flush when this many events are pending
	FlushInterval time.Duration // Flush at least this often
	BufferSize    int           // Pending events before the oldest are dropped
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     500,
		FlushInterval: time.Second,
		BufferSize:    10000,
	}
}

// Stats tracks writer performance.
type Stats struct {
	Recorded int64 // Events accepted by Record
	Dropped  int64 // Events evicted before being batched
	Inserts  int64
	Flushes  int64
	Errors   int64
}
