// Package worker mirrors locally persisted transactions to an external
// ledger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/storage"
)

// SyncWorker consumes sync events and appends the referenced
// transactions to the ledger, tracking sync state in storage.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	ledger    ledger.Writer
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, ledger ledger.Writer, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		ledger:    ledger,
		batchSize: batchSize,
	}
}

// HandleMessage processes a single event from the queue.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.Message) error {
	switch msg.Kind {
	case amqp.KindSync:
		return w.syncTransaction(ctx, msg.ID)
	case amqp.KindDelete:
		// The local row is already gone; the ledger keeps its history.
		slog.InfoContext(ctx, "Transaction deleted locally",
			"id", msg.ID,
			"timestamp", msg.Timestamp)
		return nil
	default:
		return fmt.Errorf("unknown message kind %q", msg.Kind)
	}
}

func (w *SyncWorker) syncTransaction(ctx context.Context, id int64) error {
	t, err := w.storage.GetTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Deleted between publish and consume; nothing to mirror
			slog.WarnContext(ctx, "Transaction vanished before sync", "id", id)
			return nil
		}
		return fmt.Errorf("get transaction: %w", err)
	}

	ref, err := w.ledger.Append(ctx, t)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	slog.InfoContext(ctx, "Transaction synced to ledger",
		"id", id,
		"ledger_ref", ref)

	return nil
}

// ProcessPending sweeps transactions still marked pending. This is the
// backup path for events lost between publish and consume.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.PendingSyncTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	var failed int
	for _, t := range pending {
		if err := w.syncTransaction(ctx, t.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync pending transaction", "id", t.ID, "error", err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d pending transactions failed to sync", failed, len(pending))
	}
	return nil
}
