package relay

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Server upgrades HTTP requests to WebSocket sessions and tracks live
// sessions so they can be closed on shutdown.
type Server struct {
	cfg      Config
	registry *Registry
	upgrader websocket.Upgrader
	sink     EventSink
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[*Session]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEventSink sets the receiver of session lifecycle events.
func WithEventSink(sink EventSink) ServerOption {
	return func(s *Server) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// NewServer creates a relay server backed by registry.
func NewServer(cfg Config, registry *Registry, opts ...ServerOption) *Server {
	s := &Server{
		cfg:      cfg,
		registry: registry,
		sink:     nopSink{},
		logger:   slog.Default(),
		sessions: make(map[*Session]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     s.checkOrigin,
	}

	return s
}

// ServeHTTP upgrades the request and runs the session until it ends.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.isClosed() {
		http.Error(w, ErrServerClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.logger.Debug("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	if !s.reserve() {
		conn.Close()
		return
	}
	defer s.wg.Done()

	sess := newSession(conn, s.registry, s.cfg, s.sink, s.logger)
	s.track(sess)
	defer s.untrack(sess)

	sess.Run()
}

// CloseAll refuses new sessions, closes every live session socket and
// waits for their cleanup to finish or ctx to expire.
func (s *Server) CloseAll(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	live := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()

	s.logger.Info("closing relay sessions", "count", len(live))
	for _, sess := range live {
		sess.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("relay shutdown timed out, sessions still closing")
		return ctx.Err()
	}
}

// Stats returns current relay statistics.
func (s *Server) Stats() ServerStats {
	s.mu.Lock()
	n := len(s.sessions)
	s.mu.Unlock()

	return ServerStats{
		Sessions:        n,
		RegistryEntries: s.registry.Len(),
	}
}

// reserve counts a session that is about to start. Fails once CloseAll ran.
func (s *Server) reserve() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	return true
}

// track records a live session. A session that races with CloseAll is
// closed right away so it still goes through normal cleanup.
func (s *Server) track(sess *Session) {
	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	closed := s.closed
	s.mu.Unlock()

	if closed {
		sess.Close()
	}
}

func (s *Server) untrack(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// checkOrigin allows any origin unless AllowedOrigins is set. Requests
// without an Origin header (non-browser clients) are always allowed.
func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}
