package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/wsrelay/internal/client"
)

// Message types exchanged between the two probe clients.
const (
	msgReceiveReady = "receive_ready"
	msgFileInfo     = "file_info"
	msgFileEnd      = "file_end"
)

// readyInterval is how often the receiver repeats receive_ready until the
// sender answers. The sender's alias may not be registered yet on the first try.
const readyInterval = 500 * time.Millisecond

type probeMessage struct {
	Type       string `json:"type"`
	Name       string `json:"name,omitempty"`
	Size       int    `json:"size,omitempty"`
	TotalBytes int    `json:"totalBytes,omitempty"`
	SHA256     string `json:"sha256,omitempty"`
}

type result struct {
	bytes   int
	chunks  int
	digest  string
	elapsed time.Duration
}

// sendFile waits for receive_ready, then streams payload to receiverID.
func sendFile(ctx context.Context, c client.Client, receiverID string, payload []byte, chunkSize int, logger *slog.Logger) error {
	if err := awaitText(ctx, c, msgReceiveReady); err != nil {
		return fmt.Errorf("sender: %w", err)
	}

	info := map[string]any{
		"type": msgFileInfo,
		"name": "probe.bin",
		"size": len(payload),
	}
	// Also binds receiverID as the target for the binary frames below
	if err := c.SendTo(receiverID, info); err != nil {
		return fmt.Errorf("sender: file_info: %w", err)
	}

	chunks := 0
	for off := 0; off < len(payload); off += chunkSize {
		if err := c.SendBinary(payload[off:min(off+chunkSize, len(payload))]); err != nil {
			return fmt.Errorf("sender: chunk %d: %w", chunks, err)
		}
		chunks++
	}

	sum := sha256.Sum256(payload)
	end := map[string]any{
		"type":       msgFileEnd,
		"totalBytes": len(payload),
		"sha256":     hex.EncodeToString(sum[:]),
	}
	if err := c.SendTo(receiverID, end); err != nil {
		return fmt.Errorf("sender: file_end: %w", err)
	}

	logger.Debug("payload sent", "chunks", chunks, "bytes", len(payload))
	return nil
}

// receiveFile announces readiness to senderID and collects the transfer.
func receiveFile(ctx context.Context, c client.Client, senderID string, logger *slog.Logger) (result, error) {
	ready := map[string]any{"type": msgReceiveReady}
	if err := c.SendTo(senderID, ready); err != nil {
		return result{}, fmt.Errorf("receiver: receive_ready: %w", err)
	}

	ticker := time.NewTicker(readyInterval)
	defer ticker.Stop()

	hash := sha256.New()
	var (
		started time.Time
		info    probeMessage
		res     result
	)

	for {
		select {
		case <-ctx.Done():
			return result{}, fmt.Errorf("receiver: %w", ctxErr(ctx))

		case err := <-c.Errors():
			return result{}, fmt.Errorf("receiver: %w", err)

		case <-ticker.C:
			if started.IsZero() {
				if err := c.SendTo(senderID, ready); err != nil {
					return result{}, fmt.Errorf("receiver: receive_ready: %w", err)
				}
			}

		case msg, ok := <-c.Messages():
			if !ok {
				return result{}, fmt.Errorf("receiver: %w", client.ErrNotConnected)
			}

			if !msg.IsText() {
				hash.Write(msg.Data)
				res.bytes += len(msg.Data)
				res.chunks++
				logger.Debug("chunk received", "bytes", len(msg.Data), "total", res.bytes)
				continue
			}

			var pm probeMessage
			if err := json.Unmarshal(msg.Data, &pm); err != nil {
				logger.Debug("ignoring text frame", "error", err)
				continue
			}

			switch pm.Type {
			case msgFileInfo:
				info = pm
				started = msg.ReceivedAt
				logger.Info("transfer started", "name", info.Name, "size", info.Size)

			case msgFileEnd:
				if started.IsZero() {
					return result{}, errors.New("receiver: file_end before file_info")
				}
				res.elapsed = msg.ReceivedAt.Sub(started)
				res.digest = hex.EncodeToString(hash.Sum(nil))
				if err := verify(res, pm); err != nil {
					return result{}, fmt.Errorf("receiver: %w", err)
				}
				return res, nil
			}
		}
	}
}

// verify compares what arrived against the sender's file_end summary.
func verify(res result, end probeMessage) error {
	if res.bytes != end.TotalBytes {
		return fmt.Errorf("received %d of %d bytes", res.bytes, end.TotalBytes)
	}
	if res.digest != end.SHA256 {
		return fmt.Errorf("sha256 mismatch: got %s, want %s", res.digest, end.SHA256)
	}
	return nil
}

// awaitText blocks until a text frame with the given type arrives.
func awaitText(ctx context.Context, c client.Client, msgType string) error {
	for {
		select {
		case <-ctx.Done():
			return ctxErr(ctx)
		case err := <-c.Errors():
			return err
		case msg, ok := <-c.Messages():
			if !ok {
				return client.ErrNotConnected
			}
			if !msg.IsText() {
				continue
			}
			var pm probeMessage
			if err := json.Unmarshal(msg.Data, &pm); err == nil && pm.Type == msgType {
				return nil
			}
		}
	}
}

func ctxErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return client.ErrTimeout
	}
	return ctx.Err()
}
