package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/wsrelay/internal/api"
	"github.com/rickgao/wsrelay/internal/config"
	"github.com/rickgao/wsrelay/internal/journal"
	"github.com/rickgao/wsrelay/internal/relay"
	"github.com/rickgao/wsrelay/internal/version"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type relayStats interface {
	Stats() relay.ServerStats
}

// createHealthHandler creates the HTTP handler for health checks and metrics.
// db and journalWriter are nil when the journal is disabled.
func createHealthHandler(cfg *config.RelayConfig, server relayStats, db pinger, journalWriter *journal.Writer) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(cfg.Metrics.Path, promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		stats := server.Stats()
		health := api.Health{
			Status:   api.StatusHealthy,
			Version:  version.String(),
			Instance: cfg.Instance.ID,
			Relay: api.RelayHealth{
				Sessions:        stats.Sessions,
				RegistryEntries: stats.RegistryEntries,
			},
			Journal: api.JournalHealth{Status: api.JournalDisabled},
		}

		// Check journal database
		if db != nil {
			if err := db.Ping(ctx); err != nil {
				health.Status = api.StatusUnhealthy
				health.Journal.Status = api.JournalDisconnected
				health.Journal.Error = err.Error()
			} else {
				health.Journal.Status = api.JournalConnected
			}
			if journalWriter != nil {
				js := journalWriter.Stats()
				health.Journal.Inserts = js.Inserts
				health.Journal.Dropped = js.Dropped
				health.Journal.Errors = js.Errors
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if !health.Healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
