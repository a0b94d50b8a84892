package api

import "errors"

// ErrUnhealthy is returned by GetHealth when the relay reports itself unhealthy.
var ErrUnhealthy = errors.New("relay unhealthy")

// Health statuses.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Journal statuses.
const (
	JournalDisabled     = "disabled"
	JournalConnected    = "connected"
	JournalDisconnected = "disconnected"
)

// Health is the body of GET /health.
type Health struct {
	Status   string        `json:"status"`
	Version  string        `json:"version"`
	Instance string        `json:"instance"`
	Relay    RelayHealth   `json:"relay"`
	Journal  JournalHealth `json:"journal"`
}

// RelayHealth reports live relay state.
type RelayHealth struct {
	Sessions        int `json:"sessions"`
	RegistryEntries int `json:"registry_entries"`
}

// JournalHealth reports the session journal and its database.
type JournalHealth struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Inserts int64  `json:"inserts"`
	Dropped int64  `json:"dropped"`
	Errors  int64  `json:"errors"`
}

// Healthy reports whether the relay considers itself healthy.
func (h *Health) Healthy() bool {
	return h.Status == StatusHealthy
}
