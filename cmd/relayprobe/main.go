// relayprobe pushes a random payload through a running relay and verifies it.
// Usage: go run ./cmd/relayprobe --url ws://localhost:8000/ws --size 1048576
//
// Two clients connect and register aliases. The receiver announces
// receive_ready, the sender answers with file_info, binary chunks and
// file_end, and the receiver checks the byte count and SHA-256 digest.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/wsrelay/internal/api"
	"github.com/rickgao/wsrelay/internal/client"
)

type options struct {
	url       string
	size      int
	chunkSize int
	timeout   time.Duration
	healthURL string
	verbose   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.url, "url", "ws://localhost:8000/ws", "relay WebSocket URL")
	flag.IntVar(&opts.size, "size", 1<<20, "payload size in bytes")
	flag.IntVar(&opts.chunkSize, "chunk", 16<<10, "binary chunk size in bytes")
	flag.DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall transfer timeout")
	flag.StringVar(&opts.healthURL, "health", "", "relay health base URL checked before the transfer (e.g. http://localhost:9090)")
	flag.BoolVar(&opts.verbose, "verbose", false, "log every relayed frame")
	flag.Parse()

	// Setup logger
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	if opts.size <= 0 || opts.chunkSize <= 0 {
		logger.Error("size and chunk must be positive", "size", opts.size, "chunk", opts.chunkSize)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	if opts.healthURL != "" {
		if err := checkHealth(ctx, opts.healthURL, logger); err != nil {
			logger.Error("health check failed", "error", err)
			os.Exit(1)
		}
	}

	res, err := run(ctx, opts, logger)
	if err != nil {
		logger.Error("probe failed", "error", err)
		os.Exit(1)
	}

	mbps := float64(res.bytes) / (1 << 20) / res.elapsed.Seconds()
	logger.Info("probe succeeded",
		"bytes", res.bytes,
		"chunks", res.chunks,
		"sha256", res.digest,
		"elapsed", res.elapsed,
		"throughput_mib_s", fmt.Sprintf("%.2f", mbps),
	)
}

// checkHealth logs the relay's self-reported state. A relay that is up but
// reports an unhealthy journal is still probed.
func checkHealth(ctx context.Context, baseURL string, logger *slog.Logger) error {
	c := api.NewClient(baseURL,
		api.WithLogger(logger),
		api.WithTimeout(5*time.Second),
		api.WithRetries(2, 200*time.Millisecond),
	)

	health, err := c.GetHealth(ctx)
	if err != nil && !errors.Is(err, api.ErrUnhealthy) {
		return err
	}

	logger.Info("relay health",
		"status", health.Status,
		"version", health.Version,
		"instance", health.Instance,
		"sessions", health.Relay.Sessions,
		"registry_entries", health.Relay.RegistryEntries,
		"journal", health.Journal.Status,
	)
	if err != nil {
		logger.Warn("relay reports unhealthy, probing anyway", "journal_error", health.Journal.Error)
	}
	return nil
}

func run(ctx context.Context, opts options, logger *slog.Logger) (result, error) {
	payload := make([]byte, opts.size)
	if _, err := rand.Read(payload); err != nil {
		return result{}, fmt.Errorf("generate payload: %w", err)
	}

	suffix := uuid.NewString()[:8]
	senderID := "probe-send-" + suffix
	receiverID := "probe-recv-" + suffix

	cfg := client.DefaultConfig()
	cfg.URL = opts.url

	sender := client.New(cfg, logger.With("role", "sender"))
	receiver := client.New(cfg, logger.With("role", "receiver"))
	defer sender.Close()
	defer receiver.Close()

	for _, c := range []struct {
		client client.Client
		alias  string
	}{{sender, senderID}, {receiver, receiverID}} {
		if err := c.client.Connect(ctx); err != nil {
			return result{}, fmt.Errorf("connect %s: %w", c.alias, err)
		}
		if err := c.client.Register(c.alias); err != nil {
			return result{}, fmt.Errorf("register %s: %w", c.alias, err)
		}
	}

	logger.Info("clients registered",
		"url", opts.url,
		"sender", senderID,
		"receiver", receiverID,
		"size", opts.size,
		"chunk", opts.chunkSize,
	)

	var res result
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sendFile(gctx, sender, receiverID, payload, opts.chunkSize, logger)
	})

	g.Go(func() error {
		var err error
		res, err = receiveFile(gctx, receiver, senderID, logger)
		return err
	})

	if err := g.Wait(); err != nil {
		return result{}, err
	}
	return res, nil
}
