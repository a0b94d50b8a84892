package config

import "time"

// RelayConfig is the root configuration for a relay instance.
type RelayConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Server   ServerConfig   `yaml:"server"`
	Relay    RelaySettings  `yaml:"relay"`
	Journal  JournalConfig  `yaml:"journal"`
	Database DBConfig       `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// InstanceConfig identifies this relay.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig holds the WebSocket endpoint settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`            // Listen address, e.g. 0.0.0.0:8000
	Path            string        `yaml:"path"`            // Upgrade path, e.g. /ws
	AllowedOrigins  []string      `yaml:"allowed_origins"` // Empty allows any origin
	ReadBufferSize  int           `yaml:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RelaySettings holds per-session queue and timing settings.
type RelaySettings struct {
	InboundCapacity   int           `yaml:"inbound_capacity"`  // Drop-oldest ring per session
	OutboundCapacity  int           `yaml:"outbound_capacity"` // Blocking queue feeding the socket writer
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	MaxMessageSize    int64         `yaml:"max_message_size"` // Negative = unlimited
	ReleaseAliases    bool          `yaml:"release_aliases"`  // Remove owned aliases at session end
}

// JournalConfig holds session event journal settings.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds Prometheus and health endpoint settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}
