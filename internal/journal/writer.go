package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/wsrelay/internal/buffer"
)

// Writer batches session events into relay_session_events.
// It implements relay.EventSink.
type Writer struct {
	cfg    Config
	logger *slog.Logger

	// Intake, never blocks the relay
	input *buffer.Ring[Event]

	// Database
	db BatchSender

	// Batching
	batch       []Event
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle. The consumer is waited on before ctx is cancelled so an
	// in-flight batch-size flush completes on a live context.
	ctx       context.Context
	cancel    context.CancelFunc
	consumeWG sync.WaitGroup
	flushWG   sync.WaitGroup

	// Metrics
	stats Stats
}

// NewWriter creates a new journal Writer.
func NewWriter(cfg Config, db BatchSender, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultConfig().FlushInterval
	}
	return &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  buffer.NewRing[Event](cfg.BufferSize),
		batch:  make([]Event, 0, cfg.BatchSize),
	}
}

// SessionOpened records a session start.
func (w *Writer) SessionOpened(connID, remoteAddr string) {
	w.Record(Event{Kind: KindOpened, ConnID: connID, RemoteAddr: remoteAddr})
}

// AliasRegistered records an alias registration.
func (w *Writer) AliasRegistered(connID, alias string) {
	w.Record(Event{Kind: KindAlias, ConnID: connID, Alias: alias})
}

// SessionClosed records a session end.
func (w *Writer) SessionClosed(connID, task string, duration time.Duration) {
	w.Record(Event{Kind: KindClosed, ConnID: connID, Task: task, Duration: duration})
}

// Record queues an event without blocking. Events recorded after Stop are discarded.
func (w *Writer) Record(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	if w.input.Send(ev) {
		w.batchMu.Lock()
		w.stats.Recorded++
		w.batchMu.Unlock()
	}
}

// Start begins consuming events and writing to the database.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	// Consumer goroutine
	w.consumeWG.Add(1)
	go w.consumeLoop()

	// Flush ticker goroutine
	w.flushWG.Add(1)
	go w.flushLoop()

	w.logger.Info("session journal started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains pending events, performs a final flush and shuts down.
// The input is closed and the consumer drained before the flush loop is
// cancelled, so no batch is sent on a cancelled context.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping session journal")

	w.input.Close()
	if !waitGroup(ctx, &w.consumeWG) {
		w.logger.Warn("session journal consumer stop timed out")
	}

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}
	if !waitGroup(ctx, &w.flushWG) {
		w.logger.Warn("session journal flush loop stop timed out")
	}

	// Events still in the ring after close
	if pending := w.input.DrainTo(0); len(pending) > 0 {
		w.batchMu.Lock()
		w.batch = append(w.batch, pending...)
		w.batchMu.Unlock()
	}

	w.flush(ctx)

	w.logger.Info("session journal stopped")
	return nil
}

// waitGroup waits for wg or ctx, reporting whether wg finished.
func waitGroup(ctx context.Context, wg *sync.WaitGroup) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Stats returns current metrics.
func (w *Writer) Stats() Stats {
	w.batchMu.Lock()
	stats := w.stats
	w.batchMu.Unlock()

	stats.Dropped = w.input.Stats().Dropped
	return stats
}

// consumeLoop moves events from the ring into the pending batch.
func (w *Writer) consumeLoop() {
	defer w.consumeWG.Done()

	for {
		ev, ok := w.input.Receive()
		if !ok {
			return
		}
		w.handleEvent(ev)
	}
}

// flushLoop periodically flushes the batch.
func (w *Writer) flushLoop() {
	defer w.flushWG.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// handleEvent adds an event to the batch, flushing when full.
func (w *Writer) handleEvent(ev Event) {
	w.batchMu.Lock()
	w.batch = append(w.batch, ev)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

// flush writes the current batch to the database.
func (w *Writer) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]Event, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	if err := w.batchInsert(ctx, batch); err != nil {
		w.logger.Error("journal batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.stats.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.stats.Inserts += int64(len(batch))
	w.stats.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed session events",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch.
func (w *Writer) batchInsert(ctx context.Context, events []Event) error {
	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(insertEvent,
			w.cfg.InstanceID,
			ev.ConnID,
			string(ev.Kind),
			ev.Alias,
			ev.RemoteAddr,
			ev.Task,
			ev.Duration.Milliseconds(),
			ev.At,
		)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range events {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
