package relay

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/wsrelay/internal/buffer"
)

// Errors
var (
	ErrQueueClosed   = errors.New("outbound queue closed")
	ErrInboundClosed = errors.New("inbound handle closed")
	ErrServerClosed  = errors.New("relay server closed")
)

// Session task names, reported when a task is the first to finish.
const (
	TaskWriter     = "writer"
	TaskKeepalive  = "keepalive"
	TaskInbound    = "inbound"
	TaskDispatcher = "dispatcher"
)

// Frame is a single WebSocket message moving through the relay.
type Frame struct {
	Type int    // websocket.TextMessage, BinaryMessage or PingMessage
	Data []byte // Payload, relayed verbatim
}

// TextFrame returns a text frame carrying data.
func TextFrame(data []byte) Frame { return Frame{Type: websocket.TextMessage, Data: data} }

// BinaryFrame returns a binary frame carrying data.
func BinaryFrame(data []byte) Frame { return Frame{Type: websocket.BinaryMessage, Data: data} }

// pingFrame is the keepalive probe.
var pingFrame = Frame{Type: websocket.PingMessage}

// Inbound is a session's inbound publish handle. Publishers never block;
// when the ring is full the oldest unread frame is dropped.
type Inbound = buffer.Ring[Frame]

// Wire field names.
const (
	fieldType         = "type"
	fieldConnectionID = "connectionId"
	fieldTargetID     = "target_id"

	typeRegister = "register"
)

// EventSink receives session lifecycle events. Implementations must not block.
type EventSink interface {
	SessionOpened(connID, remoteAddr string)
	AliasRegistered(connID, alias string)
	SessionClosed(connID, task string, duration time.Duration)
}

type nopSink struct{}

func (nopSink) SessionOpened(string, string)                {}
func (nopSink) AliasRegistered(string, string)              {}
func (nopSink) SessionClosed(string, string, time.Duration) {}

// Config configures sessions and the upgrade endpoint.
type Config struct {
	InboundCapacity   int           // Inbound ring size per session
	OutboundCapacity  int           // Outbound queue size per session
	KeepaliveInterval time.Duration // Period between ping probes
	WriteTimeout      time.Duration // Write deadline per frame
	MaxMessageSize    int64         // Read limit per frame, <= 0 = unlimited
	ReleaseAliases    bool          // Remove aliases this session still owns when it ends
	AllowedOrigins    []string      // Empty allows any origin
	ReadBufferSize    int
	WriteBufferSize   int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		InboundCapacity:   100,
		OutboundCapacity:  100,
		KeepaliveInterval: 30 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxMessageSize:    64 << 20,
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
	}
}

// ServerStats provides statistics about the relay.
type ServerStats struct {
	Sessions        int
	RegistryEntries int
}
