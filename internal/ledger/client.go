// Package ledger is the client for the remote ledger service, the system of
// record for tenpistas and transactions. It translates the three transaction
// operations (create, edit, refund) and the tenpista directory calls into the
// service's JSON contract and normalizes every failure into core.RemoteError.
//
// The client never retries; callers decide whether a failed call is worth
// repeating. No local state is touched here, so a retry is always safe.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tenpo/internal/core"
)

type Client struct {
	baseURL string
	httpc   *http.Client
}

// New creates a ledger client for the service at baseURL. Timeout bounds each
// individual call.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// CreateTenpista registers a new tenpista remotely. The returned record
// carries the service-assigned id.
func (c *Client) CreateTenpista(ctx context.Context, t core.Tenpista) (core.Tenpista, error) {
	payload := tenpistaPayload{
		Nombre:    t.Nombre,
		Apellido:  t.Apellido,
		NroCuenta: t.NroCuenta,
	}
	var rec tenpistaRecord
	if err := c.do(ctx, "create tenpista", http.MethodPost, "/tenpista", payload, &rec); err != nil {
		return core.Tenpista{}, err
	}
	return rec.toDomain(), nil
}

// ListTenpistas fetches the full tenpista directory.
func (c *Client) ListTenpistas(ctx context.Context) ([]core.Tenpista, error) {
	var recs []tenpistaRecord
	if err := c.do(ctx, "list tenpistas", http.MethodGet, "/tenpista", nil, &recs); err != nil {
		return nil, err
	}
	out := make([]core.Tenpista, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// GetTenpista fetches one tenpista by id. A 404 from the service maps to
// core.ErrTenpistaNotFound.
func (c *Client) GetTenpista(ctx context.Context, id int64) (core.Tenpista, error) {
	var rec tenpistaRecord
	err := c.do(ctx, "get tenpista", http.MethodGet, "/tenpista/"+strconv.FormatInt(id, 10), nil, &rec)
	if err != nil {
		var re *core.RemoteError
		if errors.As(err, &re) && re.Status == http.StatusNotFound {
			return core.Tenpista{}, core.ErrTenpistaNotFound
		}
		return core.Tenpista{}, err
	}
	return rec.toDomain(), nil
}

// CreateTransaction submits a new Venta row. The request omits the id field
// entirely; the service assigns one and returns the persisted row.
func (c *Client) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	payload := createPayload{
		TrxMonto:        tx.Monto,
		TrxGiroComercio: tx.GiroComercio,
		Tenpista:        tx.Tenpista,
		TrxFecha:        tx.Fecha,
		TrxTipo:         string(tx.Tipo),
	}
	var rec transactionRecord
	if err := c.do(ctx, "create transaction", http.MethodPost, "/transaction", payload, &rec); err != nil {
		return core.Transaction{}, err
	}
	return rec.toDomain(), nil
}

// ListTransactions fetches every ledger row, in the order the service returns
// them.
func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	var recs []transactionRecord
	if err := c.do(ctx, "list transactions", http.MethodGet, "/transaction", nil, &recs); err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// EditTransaction submits a superseding Editado row. tx.OriginalID must carry
// the id of the Venta being corrected; the row's own id travels as the 0
// sentinel so the service assigns a fresh one.
func (c *Client) EditTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	return c.supersede(ctx, "edit transaction", "/transactionEdit", tx)
}

// RefundTransaction submits a superseding Anulado row, same shape as an edit.
func (c *Client) RefundTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	return c.supersede(ctx, "refund transaction", "/transactionRefund", tx)
}

func (c *Client) supersede(ctx context.Context, op, path string, tx core.Transaction) (core.Transaction, error) {
	payload := supersedePayload{
		ID:              0,
		TrxMonto:        tx.Monto,
		TrxGiroComercio: tx.GiroComercio,
		Tenpista:        tx.Tenpista,
		TrxFecha:        tx.Fecha,
		TrxTipo:         string(tx.Tipo),
		TrxOriginalID:   tx.OriginalID,
	}
	var rec transactionRecord
	if err := c.do(ctx, op, http.MethodPost, path, payload, &rec); err != nil {
		return core.Transaction{}, err
	}
	return rec.toDomain(), nil
}

// do issues one request and decodes the response into out (when non-nil).
// Every transport failure and every non-2xx status comes back as a
// *core.RemoteError carrying the operation name.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return &core.RemoteError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &core.RemoteError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		slog.ErrorContext(ctx, "Ledger request failed",
			"operation", op,
			"method", method,
			"path", path,
			"error", err,
			"component", "ledger")
		return &core.RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.WarnContext(ctx, "Ledger rejected request",
			"operation", op,
			"method", method,
			"path", path,
			"status_code", resp.StatusCode,
			"component", "ledger")
		return &core.RemoteError{Op: op, Status: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &core.RemoteError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
