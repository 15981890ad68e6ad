package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tenpo/internal/amqp"
	"tenpo/internal/core"
	"tenpo/internal/export/memory"
	"tenpo/internal/storage"
)

func testMirror(t *testing.T) *storage.Mirror {
	t.Helper()
	m, err := storage.NewMirror(filepath.Join(t.TempDir(), "tenpo.db"))
	if err != nil {
		t.Fatalf("NewMirror: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func recordedTx(t *testing.T, m *storage.Mirror, id int64) core.Transaction {
	t.Helper()
	tx := core.Transaction{
		ID:           id,
		Monto:        12000,
		GiroComercio: "Farmacia",
		Tenpista:     "Ana Lopez",
		Fecha:        time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
		Tipo:         core.KindSale,
	}
	if err := m.Record(context.Background(), tx); err != nil {
		t.Fatalf("Record: %v", err)
	}
	return tx
}

func TestHandleTransactionEvent(t *testing.T) {
	m := testMirror(t)
	store := memory.New()
	w := NewExportWorker(m, store, 10)
	ctx := context.Background()

	recordedTx(t, m, 1)

	msg := amqp.NewTransactionRecordedMessage(1, string(core.KindSale))
	if err := w.HandleTransactionEvent(ctx, msg); err != nil {
		t.Fatalf("HandleTransactionEvent: %v", err)
	}

	got := store.Appended()
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("appended = %+v, want one row with id 1", got)
	}

	pending, err := m.Unexported(ctx, 10)
	if err != nil {
		t.Fatalf("Unexported: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("exported row still pending: %+v", pending)
	}
}

func TestHandleTransactionEvent_UnknownRowDropped(t *testing.T) {
	m := testMirror(t)
	store := memory.New()
	w := NewExportWorker(m, store, 10)

	msg := amqp.NewTransactionRecordedMessage(42, string(core.KindSale))
	if err := w.HandleTransactionEvent(context.Background(), msg); err != nil {
		t.Fatalf("unknown row must not requeue, got %v", err)
	}
	if len(store.Appended()) != 0 {
		t.Fatal("nothing should have been appended")
	}
}

func TestProcessPending_SweepsMissedRows(t *testing.T) {
	m := testMirror(t)
	store := memory.New()
	w := NewExportWorker(m, store, 10)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		recordedTx(t, m, id)
	}

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if got := store.Appended(); len(got) != 3 {
		t.Fatalf("appended %d rows, want 3", len(got))
	}

	// A second sweep finds nothing left.
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("second ProcessPending: %v", err)
	}
	if got := store.Appended(); len(got) != 3 {
		t.Fatalf("sweep re-exported rows, appended = %d", len(got))
	}
}

func TestStartupCheck(t *testing.T) {
	m := testMirror(t)
	store := memory.New()
	w := NewExportWorker(m, store, 2)
	ctx := context.Background()

	for id := int64(1); id <= 5; id++ {
		recordedTx(t, m, id)
	}

	// Startup uses a larger batch than the periodic sweep.
	if err := w.StartupCheck(ctx); err != nil {
		t.Fatalf("StartupCheck: %v", err)
	}
	if got := store.Appended(); len(got) != 5 {
		t.Fatalf("appended %d rows, want 5", len(got))
	}
}
