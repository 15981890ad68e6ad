// Package lifecycle drives the transaction state machine: Venta rows are
// created against the ledger after a quota check, and corrected or annulled
// by appending Editado/Anulado rows that reference the original. The ledger
// keeps full history; nothing is ever mutated in place.
package lifecycle

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"tenpo/internal/core"
)

// Ledger is the slice of the ledger client the controller drives.
type Ledger interface {
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	EditTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	RefundTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
}

// Accounts is the registry surface the controller needs for attribution.
type Accounts interface {
	ReserveCapacity(ctx context.Context, id int64) (core.Tenpista, error)
	ConfirmAttribution(id int64) (core.Tenpista, error)
}

// Recorder mirrors confirmed rows locally. Mirror failures are logged and
// swallowed: the remote ledger already holds the row.
type Recorder interface {
	Record(ctx context.Context, tx core.Transaction) error
}

// Publisher emits an event per confirmed row for downstream export.
type Publisher interface {
	PublishTransactionRecorded(ctx context.Context, id int64, tipo string) error
}

// Controller orchestrates submissions. Both mirror and events may be nil.
type Controller struct {
	accounts Accounts
	ledger   Ledger
	mirror   Recorder
	events   Publisher
	now      func() time.Time

	mu       sync.Mutex
	saleSems map[int64]*semaphore.Weighted
	inflight map[string]struct{}
}

func NewController(accounts Accounts, ledger Ledger, mirror Recorder, events Publisher) *Controller {
	return &Controller{
		accounts: accounts,
		ledger:   ledger,
		mirror:   mirror,
		events:   events,
		now:      time.Now,
		saleSems: make(map[int64]*semaphore.Weighted),
		inflight: make(map[string]struct{}),
	}
}

// SubmitSale validates the proposal, reserves capacity and appends a Venta
// row. Submissions for the same tenpista are serialized so the 100-row cap
// holds even under concurrent callers; on any ledger failure no local state
// moves, so the caller may simply retry.
func (c *Controller) SubmitSale(ctx context.Context, monto int64, giro string, tenpistaID int64) (core.Transaction, error) {
	if monto <= 0 {
		return core.Transaction{}, core.ErrInvalidMonto
	}
	if strings.TrimSpace(giro) == "" {
		return core.Transaction{}, core.ErrEmptyGiro
	}

	sem := c.saleSem(tenpistaID)
	if err := sem.Acquire(ctx, 1); err != nil {
		return core.Transaction{}, err
	}
	defer sem.Release(1)

	key := saleKey(tenpistaID)
	c.markBusy(key)
	defer c.clearBusy(key)

	tenpista, err := c.accounts.ReserveCapacity(ctx, tenpistaID)
	if err != nil {
		return core.Transaction{}, err
	}

	entry := core.Transaction{
		Monto:        monto,
		GiroComercio: strings.TrimSpace(giro),
		Tenpista:     tenpista.FullName(),
		Fecha:        c.now(),
		Tipo:         core.KindSale,
	}
	persisted, err := c.ledger.CreateTransaction(ctx, entry)
	if err != nil {
		return core.Transaction{}, err
	}

	confirmed, err := c.accounts.ConfirmAttribution(tenpistaID)
	if err != nil {
		// The row is already in the ledger; the local counter resyncs on the
		// next quota refresh.
		slog.ErrorContext(ctx, "Attribution confirm failed after ledger write",
			"tenpista_id", tenpistaID,
			"trx_id", persisted.ID,
			"error", err,
			"component", "lifecycle",
			"operation", "submit_sale")
	}

	c.recordAndPublish(ctx, persisted)

	slog.InfoContext(ctx, "Sale submitted",
		"trx_id", persisted.ID,
		"monto", persisted.Monto,
		"tenpista", persisted.Tenpista,
		"transacciones_count", confirmed.TransaccionesCount,
		"component", "lifecycle",
		"operation", "submit_sale")
	return persisted, nil
}

// EditSale appends an Editado row superseding a Venta. The account counter is
// untouched: corrections consume no quota.
func (c *Controller) EditSale(ctx context.Context, existing core.Transaction, newMonto int64) (core.Transaction, error) {
	if !existing.Editable() {
		return core.Transaction{}, core.ErrNotEditable
	}
	if newMonto <= 0 {
		return core.Transaction{}, core.ErrInvalidMonto
	}

	key := trxKey(existing.ID)
	if !c.tryMarkBusy(key) {
		return core.Transaction{}, core.ErrInFlight
	}
	defer c.clearBusy(key)

	entry := existing
	entry.ID = 0
	entry.Monto = newMonto
	entry.Tipo = core.KindEdited
	entry.OriginalID = existing.ID

	persisted, err := c.ledger.EditTransaction(ctx, entry)
	if err != nil {
		return core.Transaction{}, err
	}

	c.recordAndPublish(ctx, persisted)

	slog.InfoContext(ctx, "Sale edited",
		"trx_id", persisted.ID,
		"trx_original_id", existing.ID,
		"monto", persisted.Monto,
		"component", "lifecycle",
		"operation", "edit_sale")
	return persisted, nil
}

// VoidSale appends an Anulado row superseding a Venta, preserving the original
// amount and merchant.
func (c *Controller) VoidSale(ctx context.Context, existing core.Transaction) (core.Transaction, error) {
	if !existing.Editable() {
		return core.Transaction{}, core.ErrNotEditable
	}

	key := trxKey(existing.ID)
	if !c.tryMarkBusy(key) {
		return core.Transaction{}, core.ErrInFlight
	}
	defer c.clearBusy(key)

	entry := existing
	entry.ID = 0
	entry.Tipo = core.KindVoided
	entry.OriginalID = existing.ID

	persisted, err := c.ledger.RefundTransaction(ctx, entry)
	if err != nil {
		return core.Transaction{}, err
	}

	c.recordAndPublish(ctx, persisted)

	slog.InfoContext(ctx, "Sale voided",
		"trx_id", persisted.ID,
		"trx_original_id", existing.ID,
		"component", "lifecycle",
		"operation", "void_sale")
	return persisted, nil
}

// ListTransactions returns the ledger rows in the order the service reports
// them; the controller never re-sorts.
func (c *Controller) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return c.ledger.ListTransactions(ctx)
}

// SaleBusy reports whether a submission for the tenpista is in flight. The UI
// layer uses this to disable re-submission.
func (c *Controller) SaleBusy(tenpistaID int64) bool {
	return c.busy(saleKey(tenpistaID))
}

// TransactionBusy reports whether an edit or void targeting the transaction
// is in flight.
func (c *Controller) TransactionBusy(trxID int64) bool {
	return c.busy(trxKey(trxID))
}

func (c *Controller) recordAndPublish(ctx context.Context, tx core.Transaction) {
	if c.mirror != nil {
		if err := c.mirror.Record(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction",
				"trx_id", tx.ID,
				"error", err,
				"component", "lifecycle",
				"operation", "mirror")
		}
	}
	if c.events != nil {
		if err := c.events.PublishTransactionRecorded(ctx, tx.ID, string(tx.Tipo)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish transaction event",
				"trx_id", tx.ID,
				"error", err,
				"component", "lifecycle",
				"operation", "publish")
		}
	}
}

// saleSem returns the weighted-1 semaphore serializing submissions for one
// tenpista. Context-aware, unlike a plain mutex: a caller whose request is
// cancelled stops waiting for the slot.
func (c *Controller) saleSem(tenpistaID int64) *semaphore.Weighted {
	c.mu.Lock()
	defer c.mu.Unlock()
	sem, ok := c.saleSems[tenpistaID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		c.saleSems[tenpistaID] = sem
	}
	return sem
}

func (c *Controller) markBusy(key string) {
	c.mu.Lock()
	c.inflight[key] = struct{}{}
	c.mu.Unlock()
}

func (c *Controller) tryMarkBusy(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inflight[key]; ok {
		return false
	}
	c.inflight[key] = struct{}{}
	return true
}

func (c *Controller) clearBusy(key string) {
	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
}

func (c *Controller) busy(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[key]
	return ok
}

func saleKey(tenpistaID int64) string {
	return "tenpista/" + strconv.FormatInt(tenpistaID, 10)
}

func trxKey(trxID int64) string {
	return "trx/" + strconv.FormatInt(trxID, 10)
}
