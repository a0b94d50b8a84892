package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/wsrelay/internal/config"
	"github.com/rickgao/wsrelay/internal/database"
	"github.com/rickgao/wsrelay/internal/journal"
	"github.com/rickgao/wsrelay/internal/metrics"
	"github.com/rickgao/wsrelay/internal/relay"
	"github.com/rickgao/wsrelay/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (built-in defaults when empty)")
	instanceID := flag.String("instance", "relay-local", "instance id used when no config file is given")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *instanceID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	build := version.Get()
	logger.Info("starting relay",
		"version", build.Version,
		"commit", build.Commit,
		"go_version", build.GoVersion,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("relay failed", "error", err)
		os.Exit(1)
	}

	logger.Info("relay stopped")
}

func loadConfig(path, instanceID string) (*config.RelayConfig, error) {
	if path == "" {
		return config.Default(instanceID)
	}
	return config.LoadAndValidate(path)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// relayConfig maps file configuration onto the relay package's Config.
func relayConfig(cfg *config.RelayConfig) relay.Config {
	return relay.Config{
		InboundCapacity:   cfg.Relay.InboundCapacity,
		OutboundCapacity:  cfg.Relay.OutboundCapacity,
		KeepaliveInterval: cfg.Relay.KeepaliveInterval,
		WriteTimeout:      cfg.Relay.WriteTimeout,
		MaxMessageSize:    cfg.Relay.MaxMessageSize,
		ReleaseAliases:    cfg.Relay.ReleaseAliases,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		ReadBufferSize:    cfg.Server.ReadBufferSize,
		WriteBufferSize:   cfg.Server.WriteBufferSize,
	}
}

func run(cfg *config.RelayConfig, logger *slog.Logger) error {
	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	metrics.RegisterMetrics()

	opts := []relay.ServerOption{relay.WithLogger(logger)}

	var pool *pgxpool.Pool
	var journalWriter *journal.Writer
	if cfg.Journal.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)

		var err error
		pool, err = database.Connect(ctx, cfg.Database, "wsrelay "+cfg.Instance.ID)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()

		if err := journal.EnsureSchema(ctx, pool); err != nil {
			return err
		}

		logger.Info("database connected")

		journalWriter = journal.NewWriter(journal.Config{
			InstanceID:    cfg.Instance.ID,
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
			BufferSize:    cfg.Journal.BufferSize,
		}, pool, logger.With("component", "journal"))

		// Detached from ctx so events from closing sessions still flush
		if err := journalWriter.Start(context.Background()); err != nil {
			return fmt.Errorf("start journal: %w", err)
		}
		opts = append(opts, relay.WithEventSink(journalWriter))
	}

	server := relay.NewServer(relayConfig(cfg), relay.NewRegistry(), opts...)

	relayMux := http.NewServeMux()
	relayMux.Handle(cfg.Server.Path, server)
	relayServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: relayMux,
	}

	var db pinger
	if pool != nil {
		db = pool
	}
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: createHealthHandler(cfg, server, db, journalWriter),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting relay server", "addr", cfg.Server.Addr, "path", cfg.Server.Path)
		if err := relayServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("relay server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Metrics.Port)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		// Shutdown does not touch hijacked connections, CloseAll ends them
		if err := relayServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("relay server shutdown", "error", err)
		}
		if err := server.CloseAll(shutdownCtx); err != nil {
			logger.Warn("closing sessions", "error", err)
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("health server shutdown", "error", err)
		}
		if journalWriter != nil {
			journalWriter.Stop(shutdownCtx)
		}
		return nil
	})

	logger.Info("relay running",
		"instance_id", cfg.Instance.ID,
		"ws_url", fmt.Sprintf("ws://%s%s", cfg.Server.Addr, cfg.Server.Path),
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	return g.Wait()
}
