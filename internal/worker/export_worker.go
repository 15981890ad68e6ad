// Package worker exports mirrored ledger rows to the reconciliation sheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tenpo/internal/amqp"
	"tenpo/internal/export"
	"tenpo/internal/storage"
)

// ExportWorker drains the mirror's export queue. Rows arrive via AMQP events
// and via periodic sweeps over unexported rows.
type ExportWorker struct {
	mirror    *storage.Mirror
	appender  export.TransactionAppender
	batchSize int
}

func NewExportWorker(mirror *storage.Mirror, appender export.TransactionAppender, batchSize int) *ExportWorker {
	return &ExportWorker{
		mirror:    mirror,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleTransactionEvent processes a single transaction-recorded event.
func (w *ExportWorker) HandleTransactionEvent(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"trx_id", msg.ID,
		"trx_tipo", msg.Tipo)

	tx, err := w.mirror.Get(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		// The service records the row before publishing, so a missing row
		// means the mirror write failed. The periodic sweep cannot recover
		// it either, so drop the event instead of requeueing forever.
		slog.WarnContext(ctx, "Event references a row the mirror never saw, dropping",
			"trx_id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from mirror: %w", err)
	}

	ref, err := w.appender.Append(ctx, tx)
	if err != nil {
		return fmt.Errorf("append to export destination: %w", err)
	}

	if err := w.mirror.MarkExported(ctx, tx.ID); err != nil {
		// The append succeeded; the sweep may re-append this row but the
		// destination is append-only so a duplicate is visible, not lost.
		slog.ErrorContext(ctx, "Failed to mark as exported", "trx_id", tx.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		"trx_id", tx.ID,
		"trx_tipo", string(tx.Tipo),
		"row_ref", ref)
	return nil
}

// ProcessPending exports rows that have no exported stamp yet. This is the
// backup path for lost AMQP events.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.mirror.Unexported(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unexported rows: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing unexported rows", "count", len(pending))

	for _, tx := range pending {
		ref, err := w.appender.Append(ctx, tx)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to export row", "trx_id", tx.ID, "error", err)
			continue
		}
		if err := w.mirror.MarkExported(ctx, tx.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark as exported", "trx_id", tx.ID, "error", err)
			continue
		}
		slog.DebugContext(ctx, "Exported row", "trx_id", tx.ID, "row_ref", ref)
	}
	return nil
}

// StartupCheck drains rows that accumulated while the worker was down.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.mirror.Unexported(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list unexported rows for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No unexported rows found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found unexported rows on startup, processing...",
		"count", len(pending))

	exported := 0
	failed := 0
	for _, tx := range pending {
		if _, err := w.appender.Append(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export row during startup",
				"trx_id", tx.ID, "error", err)
			failed++
			continue
		}
		if err := w.mirror.MarkExported(ctx, tx.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark as exported", "trx_id", tx.ID, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", exported,
		"errors", failed)
	return nil
}
