package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServerAddr        = "0.0.0.0:8000"
	DefaultServerPath        = "/ws"
	DefaultReadBufferSize    = 4096
	DefaultWriteBufferSize   = 4096
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultInboundCapacity   = 100
	DefaultOutboundCapacity  = 100
	DefaultKeepaliveInterval = 30 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultMaxMessageSize    = 64 << 20
	DefaultJournalBatchSize  = 500
	DefaultFlushInterval     = 1 * time.Second
	DefaultJournalBufferSize = 10000
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultMetricsPort       = 9090
	DefaultMetricsPath       = "/metrics"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

func (c *RelayConfig) applyDefaults() {
	// Server defaults
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.Path == "" {
		c.Server.Path = DefaultServerPath
	}
	if c.Server.ReadBufferSize == 0 {
		c.Server.ReadBufferSize = DefaultReadBufferSize
	}
	if c.Server.WriteBufferSize == 0 {
		c.Server.WriteBufferSize = DefaultWriteBufferSize
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Relay defaults
	if c.Relay.InboundCapacity == 0 {
		c.Relay.InboundCapacity = DefaultInboundCapacity
	}
	if c.Relay.OutboundCapacity == 0 {
		c.Relay.OutboundCapacity = DefaultOutboundCapacity
	}
	if c.Relay.KeepaliveInterval == 0 {
		c.Relay.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if c.Relay.WriteTimeout == 0 {
		c.Relay.WriteTimeout = DefaultWriteTimeout
	}
	if c.Relay.MaxMessageSize == 0 {
		c.Relay.MaxMessageSize = DefaultMaxMessageSize
	}

	// Journal defaults
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultJournalBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultJournalBufferSize
	}

	applyDBDefaults(&c.Database)

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	// An explicit max_conns with no min_conns keeps min at 0
	maxUnset := db.MaxConns == 0
	if maxUnset {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 && maxUnset {
		db.MinConns = DefaultMinConns
	}
}
