package relay

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/wsrelay/internal/buffer"
	"github.com/rickgao/wsrelay/internal/metrics"
)

// Session owns one accepted connection end-to-end.
type Session struct {
	id       string
	cfg      Config
	conn     *websocket.Conn
	registry *Registry
	sink     EventSink
	logger   *slog.Logger

	inbound  *Inbound
	outbound chan Frame

	// Closed when the first task finishes. Producers into outbound
	// treat it as the queue being closed.
	done      chan struct{}
	closeOnce sync.Once
	openedAt  time.Time

	// Aliases registered by the dispatcher, released at close when configured.
	aliasMu sync.Mutex
	aliases []string
}

// newSession generates a connection id, creates the inbound handle and
// registers it. The socket must already be upgraded.
func newSession(conn *websocket.Conn, registry *Registry, cfg Config, sink EventSink, logger *slog.Logger) *Session {
	if sink == nil {
		sink = nopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.NewString()
	s := &Session{
		id:       id,
		cfg:      cfg,
		conn:     conn,
		registry: registry,
		sink:     sink,
		logger:   logger.With("conn_id", id, "remote", conn.RemoteAddr().String()),
		inbound:  buffer.NewRing[Frame](cfg.InboundCapacity),
		outbound: make(chan Frame, cfg.OutboundCapacity),
		done:     make(chan struct{}),
		openedAt: time.Now(),
	}

	if cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	registry.Register(id, s.inbound)
	return s
}

// ID returns the generated connection id.
func (s *Session) ID() string {
	return s.id
}

// Run starts the four session tasks and blocks until the first one
// finishes, then cleans up. Returns the name of the task that finished first.
func (s *Session) Run() string {
	metrics.RecordSessionOpened()
	s.sink.SessionOpened(s.id, s.conn.RemoteAddr().String())
	s.logger.Info("connection opened")

	finished := make(chan string, 4)
	s.spawn(finished, TaskWriter, s.writeLoop)
	s.spawn(finished, TaskKeepalive, s.keepaliveLoop)
	s.spawn(finished, TaskInbound, s.inboundLoop)
	s.spawn(finished, TaskDispatcher, s.dispatchLoop)

	first := <-finished
	s.close(first)
	return first
}

// Close ends the session from outside by closing its socket. The dispatcher
// observes the read error and the normal cleanup path runs.
func (s *Session) Close() error {
	return s.conn.Close()
}

func (s *Session) spawn(finished chan<- string, name string, task func() error) {
	go func() {
		err := task()
		s.logger.Debug("session task finished", "task", name, "error", err)
		finished <- name
	}()
}

// close runs the cleanup protocol exactly once.
func (s *Session) close(task string) {
	s.closeOnce.Do(func() {
		close(s.done)
		s.inbound.Close()
		s.conn.Close()

		s.registry.Remove(s.id)
		if s.cfg.ReleaseAliases {
			s.releaseAliases()
		}

		duration := time.Since(s.openedAt)
		metrics.RecordSessionClosed(task)
		s.sink.SessionClosed(s.id, task, duration)
		s.logger.Info("connection closed", "task", task, "duration", duration)
	})
}

// releaseAliases removes aliases that still point at this session.
func (s *Session) releaseAliases() {
	s.aliasMu.Lock()
	aliases := s.aliases
	s.aliases = nil
	s.aliasMu.Unlock()

	for _, alias := range aliases {
		if s.registry.RemoveIf(alias, s.inbound) {
			s.logger.Debug("alias released", "alias", alias)
		}
	}
}

func (s *Session) addAlias(alias string) {
	s.aliasMu.Lock()
	s.aliases = append(s.aliases, alias)
	s.aliasMu.Unlock()
}

// enqueue adds f to the outbound queue, blocking while it is full.
func (s *Session) enqueue(f Frame) error {
	select {
	case <-s.done:
		return ErrQueueClosed
	default:
	}

	select {
	case s.outbound <- f:
		return nil
	case <-s.done:
		return ErrQueueClosed
	}
}

// writeLoop drains the outbound queue to the socket. Any write error is fatal.
func (s *Session) writeLoop() error {
	for {
		select {
		case <-s.done:
			return ErrQueueClosed
		case f := <-s.outbound:
			deadline := time.Now().Add(s.cfg.WriteTimeout)
			var err error
			if f.Type == websocket.PingMessage {
				err = s.conn.WriteControl(websocket.PingMessage, f.Data, deadline)
			} else {
				s.conn.SetWriteDeadline(deadline)
				err = s.conn.WriteMessage(f.Type, f.Data)
			}
			if err != nil {
				return err
			}
		}
	}
}

// keepaliveLoop enqueues a ping probe on entry and then every
// KeepaliveInterval. It does not track pongs.
func (s *Session) keepaliveLoop() error {
	if err := s.enqueue(pingFrame); err != nil {
		return err
	}

	ticker := time.NewTicker(s.cfg.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return ErrQueueClosed
		case <-ticker.C:
			if err := s.enqueue(pingFrame); err != nil {
				return err
			}
		}
	}
}

// inboundLoop forwards frames other sessions published to this session
// into the outbound queue, in arrival order.
func (s *Session) inboundLoop() error {
	var seenDropped int64
	for {
		f, ok := s.inbound.Receive()
		if !ok {
			return ErrInboundClosed
		}

		if dropped := s.inbound.Stats().Dropped; dropped > seenDropped {
			gap := dropped - seenDropped
			seenDropped = dropped
			metrics.RecordInboundDropped(gap)
			s.logger.Warn("inbound buffer overflow, oldest frames dropped", "dropped", gap)
		}

		if err := s.enqueue(f); err != nil {
			return err
		}
	}
}
