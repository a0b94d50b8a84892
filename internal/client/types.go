package client

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrTimeout         = errors.New("operation timeout")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrEmptyTarget     = errors.New("target id is empty")
)

// Message is a data frame received from the relay.
type Message struct {
	Type       int       // websocket.TextMessage or websocket.BinaryMessage
	Data       []byte    // Raw payload
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// IsText reports whether the message arrived as a text frame.
func (m Message) IsText() bool {
	return m.Type == textMessage
}

// registerCommand is the alias registration frame.
type registerCommand struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connectionId"`
}

// Config configures a relay client.
type Config struct {
	URL              string        // Relay URL (e.g., ws://localhost:8000/ws)
	HandshakeTimeout time.Duration // Dial handshake timeout
	WriteTimeout     time.Duration // Write deadline for sends
	PingTimeout      time.Duration // Max time without a relay ping before the connection is stale, 0 disables
	BufferSize       int           // Message channel buffer size
}

// DefaultConfig returns sensible defaults. The relay pings every 30s.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingTimeout:      90 * time.Second,
		BufferSize:       1000,
	}
}
