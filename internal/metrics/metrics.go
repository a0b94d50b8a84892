package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Frame kinds.
const (
	KindText     = "text"
	KindBinary   = "binary"
	KindRegister = "register"
	KindControl  = "control"
)

// Routing outcomes.
const (
	OutcomeRelayed    = "relayed"
	OutcomeMiss       = "miss"      // Target id not registered or handle closed
	OutcomeNoTarget   = "no_target" // Binary frame before any target was bound
	OutcomeIgnored    = "ignored"
	OutcomeRegistered = "registered"
)

var (
	registerOnce sync.Once

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wsrelay",
			Name:      "sessions_active",
			Help:      "Currently open relay sessions.",
		},
	)
	sessionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wsrelay",
			Name:      "sessions_total",
			Help:      "Relay sessions accepted since start.",
		},
	)
	sessionCloses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wsrelay",
			Name:      "session_close_total",
			Help:      "Session terminations by the task that finished first.",
		},
		[]string{"task"},
	)
	frames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wsrelay",
			Name:      "frames_total",
			Help:      "Frames read from clients by kind and routing outcome.",
		},
		[]string{"kind", "outcome"},
	)
	inboundDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wsrelay",
			Name:      "inbound_dropped_total",
			Help:      "Relayed frames evicted unread from a full inbound ring.",
		},
	)
	registryEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wsrelay",
			Name:      "registry_entries",
			Help:      "Connection ids currently present in the registry.",
		},
	)
)

// RegisterMetrics registers all collectors with the default registry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(sessionsActive, sessionsTotal, sessionCloses, frames, inboundDropped, registryEntries)
	})
}

// RecordSessionOpened counts a newly accepted session.
func RecordSessionOpened() {
	RegisterMetrics()
	sessionsTotal.Inc()
	sessionsActive.Inc()
}

// RecordSessionClosed counts a session end, labelled by the task that finished first.
func RecordSessionClosed(task string) {
	RegisterMetrics()
	sessionsActive.Dec()
	sessionCloses.WithLabelValues(task).Inc()
}

// RecordFrame counts one frame read by a dispatcher by kind and routing outcome.
func RecordFrame(kind, outcome string) {
	RegisterMetrics()
	frames.WithLabelValues(kind, outcome).Inc()
}

// RecordInboundDropped adds n frames evicted unread from inbound rings.
func RecordInboundDropped(n int64) {
	if n <= 0 {
		return
	}
	RegisterMetrics()
	inboundDropped.Add(float64(n))
}

// SetRegistryEntries sets the current number of registry entries.
func SetRegistryEntries(n int) {
	RegisterMetrics()
	registryEntries.Set(float64(n))
}
