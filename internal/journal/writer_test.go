package journal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/wsrelay/internal/relay"
)

var _ relay.EventSink = (*Writer)(nil)

// fakeSender records queued batches instead of talking to PostgreSQL.
type fakeSender struct {
	mu      sync.Mutex
	batches [][]*pgx.QueuedQuery
	err     error
}

func (f *fakeSender) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	f.mu.Lock()
	f.batches = append(f.batches, b.QueuedQueries)
	f.mu.Unlock()
	return &fakeResults{err: f.err}
}

func (f *fakeSender) rows() []*pgx.QueuedQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*pgx.QueuedQuery
	for _, b := range f.batches {
		out = append(out, b...)
	}
	return out
}

type fakeResults struct {
	err error
}

func (r *fakeResults) Exec() (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("INSERT 0 1"), r.err
}

func (r *fakeResults) Query() (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (r *fakeResults) QueryRow() pgx.Row {
	return nil
}

func (r *fakeResults) Close() error {
	return nil
}

// gatedSender blocks SendBatch until released, then reports whether the
// batch was sent on a cancelled context.
type gatedSender struct {
	entered chan struct{}
	release chan struct{}

	mu       sync.Mutex
	sendErrs []error
}

func newGatedSender() *gatedSender {
	return &gatedSender{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (g *gatedSender) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release

	err := ctx.Err()
	g.mu.Lock()
	g.sendErrs = append(g.sendErrs, err)
	g.mu.Unlock()
	return &fakeResults{err: err}
}

type fakeExecer struct {
	statements []string
	err        error
}

func (f *fakeExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.statements = append(f.statements, sql)
	return pgconn.CommandTag{}, f.err
}

func stopWriter(t *testing.T, w *Writer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWriter_Lifecycle(t *testing.T) {
	cfg := Config{
		BatchSize:     10,
		FlushInterval: 100 * time.Millisecond,
		BufferSize:    10,
	}

	// Nothing recorded, so the nil sender is never used
	w := NewWriter(cfg, nil, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	stopWriter(t, w)
}

func TestWriter_FlushOnInterval(t *testing.T) {
	db := &fakeSender{}
	cfg := Config{
		InstanceID:    "relay-1",
		BatchSize:     100,
		FlushInterval: 20 * time.Millisecond,
		BufferSize:    100,
	}
	w := NewWriter(cfg, db, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer stopWriter(t, w)

	w.SessionOpened("conn-1", "10.0.0.1:5000")
	w.AliasRegistered("conn-1", "peer-a")
	w.SessionClosed("conn-1", "dispatcher", 1500*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for len(db.rows()) < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	rows := db.rows()
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	for _, q := range rows {
		if !strings.Contains(q.SQL, "INSERT INTO relay_session_events") {
			t.Errorf("SQL = %q, want insert into relay_session_events", q.SQL)
		}
		if q.Arguments[0] != "relay-1" {
			t.Errorf("instance_id = %v, want relay-1", q.Arguments[0])
		}
		if q.Arguments[1] != "conn-1" {
			t.Errorf("conn_id = %v, want conn-1", q.Arguments[1])
		}
	}

	if rows[0].Arguments[2] != "opened" || rows[0].Arguments[4] != "10.0.0.1:5000" {
		t.Errorf("opened row args = %v", rows[0].Arguments)
	}
	if rows[1].Arguments[2] != "alias" || rows[1].Arguments[3] != "peer-a" {
		t.Errorf("alias row args = %v", rows[1].Arguments)
	}
	if rows[2].Arguments[2] != "closed" || rows[2].Arguments[5] != "dispatcher" {
		t.Errorf("closed row args = %v", rows[2].Arguments)
	}
	if rows[2].Arguments[6] != int64(1500) {
		t.Errorf("duration_ms = %v, want 1500", rows[2].Arguments[6])
	}
}

func TestWriter_FlushOnBatchSize(t *testing.T) {
	db := &fakeSender{}
	cfg := Config{
		BatchSize:     2,
		FlushInterval: time.Hour,
		BufferSize:    100,
	}
	w := NewWriter(cfg, db, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer stopWriter(t, w)

	w.SessionOpened("a", "")
	w.SessionOpened("b", "")

	deadline := time.Now().Add(time.Second)
	for len(db.rows()) < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if got := len(db.rows()); got != 2 {
		t.Errorf("rows = %d, want 2 before flush interval", got)
	}
}

func TestWriter_StopFlushesPending(t *testing.T) {
	db := &fakeSender{}
	cfg := Config{
		BatchSize:     100,
		FlushInterval: time.Hour,
		BufferSize:    100,
	}
	w := NewWriter(cfg, db, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		w.SessionOpened("conn", "")
	}

	stopWriter(t, w)

	if got := len(db.rows()); got != 5 {
		t.Errorf("rows after Stop = %d, want 5", got)
	}

	stats := w.Stats()
	if stats.Inserts != 5 || stats.Flushes != 1 {
		t.Errorf("stats = %+v, want 5 inserts in 1 flush", stats)
	}

	// Recording after Stop is a no-op
	w.SessionOpened("late", "")
	if got := w.Stats().Recorded; got != 5 {
		t.Errorf("Recorded after Stop = %d, want 5", got)
	}
}

func TestWriter_RecordDropsOldest(t *testing.T) {
	cfg := Config{
		BatchSize:     100,
		FlushInterval: time.Hour,
		BufferSize:    2,
	}
	w := NewWriter(cfg, nil, nil)

	// Not started, so nothing consumes the ring
	w.SessionOpened("1", "")
	w.SessionOpened("2", "")
	w.SessionOpened("3", "")

	stats := w.Stats()
	if stats.Recorded != 3 {
		t.Errorf("Recorded = %d, want 3", stats.Recorded)
	}
	if stats.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", stats.Dropped)
	}

	pending := w.input.DrainTo(0)
	if len(pending) != 2 || pending[0].ConnID != "2" || pending[1].ConnID != "3" {
		t.Errorf("pending = %+v, want conn ids 2 and 3", pending)
	}
}

func TestWriter_InsertError(t *testing.T) {
	db := &fakeSender{err: errors.New("connection refused")}
	cfg := Config{
		BatchSize:     100,
		FlushInterval: time.Hour,
		BufferSize:    10,
	}
	w := NewWriter(cfg, db, nil)

	w.handleEvent(Event{Kind: KindOpened, ConnID: "conn", At: time.Now()})
	w.flush(context.Background())

	stats := w.Stats()
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
	if stats.Inserts != 0 {
		t.Errorf("Inserts = %d, want 0", stats.Inserts)
	}
}

func TestWriter_RecordSetsTimestamp(t *testing.T) {
	w := NewWriter(DefaultConfig(), nil, nil)

	before := time.Now()
	w.Record(Event{Kind: KindOpened, ConnID: "conn"})

	ev, ok := w.input.TryReceive()
	if !ok {
		t.Fatal("expected a pending event")
	}
	if ev.At.Before(before) {
		t.Errorf("At = %v, want >= %v", ev.At, before)
	}
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeExecer{}
	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if len(db.statements) != 2 {
		t.Fatalf("statements = %d, want 2", len(db.statements))
	}
	if !strings.Contains(db.statements[0], "CREATE TABLE IF NOT EXISTS relay_session_events") {
		t.Errorf("first statement = %q, want table creation", db.statements[0])
	}

	failing := &fakeExecer{err: errors.New("permission denied")}
	if err := EnsureSchema(context.Background(), failing); err == nil {
		t.Error("EnsureSchema() expected error")
	}
}

func TestWriter_StopCompletesInFlightFlush(t *testing.T) {
	db := newGatedSender()
	cfg := Config{
		BatchSize:     1, // Every event triggers a consumer-side flush
		FlushInterval: time.Hour,
		BufferSize:    10,
	}
	w := NewWriter(cfg, db, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	w.SessionOpened("conn-1", "")

	select {
	case <-db.entered:
	case <-time.After(time.Second):
		t.Fatal("flush never reached the database")
	}

	stopped := make(chan struct{})
	go func() {
		stopWriter(t, w)
		close(stopped)
	}()

	// Let Stop start while the batch is still in flight
	time.Sleep(20 * time.Millisecond)
	close(db.release)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.sendErrs) != 1 || db.sendErrs[0] != nil {
		t.Errorf("send errors = %v, want one send on a live context", db.sendErrs)
	}

	stats := w.Stats()
	if stats.Errors != 0 || stats.Inserts != 1 {
		t.Errorf("stats = %+v, want 1 insert and no errors", stats)
	}
}

func TestNewWriter_NonPositiveFlushInterval(t *testing.T) {
	w := NewWriter(Config{BatchSize: 10, FlushInterval: -time.Second, BufferSize: 10}, nil, nil)
	if w.cfg.FlushInterval != DefaultConfig().FlushInterval {
		t.Errorf("FlushInterval = %v, want default %v", w.cfg.FlushInterval, DefaultConfig().FlushInterval)
	}

	// Start must not panic in time.NewTicker
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	stopWriter(t, w)
}
