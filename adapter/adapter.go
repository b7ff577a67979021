// Package adapter defines the notification boundary for finished transfers.
//
// Adapters publish transfer completion notifications to downstream systems.
// The decode command owns adapter lifecycle; users provide configuration only.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justapithecus/datablast/receiver"
)

// ContractVersion is the version of the TransferCompletedEvent shape.
const ContractVersion = "1.0.0"

// EventTypeTransferCompleted is the only event type published.
const EventTypeTransferCompleted = "transfer_completed"

// DefaultBackoff is the delay before the first retry. Each further retry
// doubles it.
const DefaultBackoff = 500 * time.Millisecond

// TransferCompletedEvent is the payload published when a file has been
// reassembled, verified and stored.
type TransferCompletedEvent struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"` // always "transfer_completed"
	SessionID       string `json:"session_id"`
	SequenceID      uint8  `json:"sequence_id"`
	FileName        string `json:"file_name"`
	FileLength      int64  `json:"file_length"`
	ChunkCount      uint64 `json:"chunk_count"`
	SHA3            string `json:"sha3"`
	StoragePath     string `json:"storage_path"`
	Timestamp       string `json:"timestamp"` // RFC 3339
	SymbolsReceived int64  `json:"symbols_received"`
	DurationMs      int64  `json:"duration_ms"`
}

// NewTransferCompletedEvent builds the event for a stored transfer.
func NewTransferCompletedEvent(sessionID string, t *receiver.Transfer, storagePath string) *TransferCompletedEvent {
	return &TransferCompletedEvent{
		ContractVersion: ContractVersion,
		EventType:       EventTypeTransferCompleted,
		SessionID:       sessionID,
		SequenceID:      t.SequenceID,
		FileName:        t.FileName,
		FileLength:      int64(len(t.Data)),
		ChunkCount:      t.ChunkCount,
		SHA3:            t.Hash,
		StoragePath:     storagePath,
		Timestamp:       t.CompletedAt.UTC().Format(time.RFC3339),
		SymbolsReceived: t.SymbolsReceived,
		DurationMs:      t.Duration().Milliseconds(),
	}
}

// Adapter publishes transfer completion events to a downstream system.
type Adapter interface {
	// Publish sends a transfer completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *TransferCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// PermanentError marks a failure that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Retry calls attempt up to 1+retries times with exponential backoff
// starting at backoff. A *PermanentError stops the loop immediately.
// name prefixes returned errors.
func Retry(ctx context.Context, name string, retries int, backoff time.Duration, attempt func(context.Context) error) error {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}

	var lastErr error
	attempts := 1 + retries
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}

		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-time.After(backoff << (i - 1)):
			}
		}

		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}

		var perm *PermanentError
		if errors.As(lastErr, &perm) {
			return fmt.Errorf("%s: non-retriable error: %w", name, perm.Err)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}
