package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tenpo/internal/core"
	"tenpo/internal/storage"
)

func (s *Server) handleTenpistas(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		out := make([]tenpistaJSON, 0)
		for _, t := range s.accounts.List() {
			out = append(out, toTenpistaJSON(t))
		}
		writeJSON(w, r, http.StatusOK, out)
	case http.MethodPost:
		var req struct {
			Nombre    string `json:"nombre"`
			Apellido  string `json:"apellido"`
			NroCuenta string `json:"nroCuenta"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		created, err := s.accounts.Register(r.Context(), req.Nombre, req.Apellido, req.NroCuenta)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, toTenpistaJSON(created))
	default:
		methodNotAllowed(w, "GET", "POST")
	}
}

func (s *Server) handleTenpistaByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	id, err := parseID(strings.TrimPrefix(r.URL.Path, "/tenpista/"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	t, err := s.accounts.Lookup(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := struct {
		tenpistaJSON
		Busy bool `json:"busy"`
	}{toTenpistaJSON(t), s.transactions.SaleBusy(id)}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListTransactions(w, r)
	case http.MethodPost:
		var req struct {
			TenpistaID   int64      `json:"tenpistaId"`
			Monto        montoField `json:"trxMonto"`
			GiroComercio string     `json:"trxGiroComercio"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		persisted, err := s.transactions.SubmitSale(r.Context(), int64(req.Monto), req.GiroComercio, req.TenpistaID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.listCache.Purge()
		writeJSON(w, r, http.StatusCreated, toTransactionJSON(persisted))
	default:
		methodNotAllowed(w, "GET", "POST")
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.ListFilter{IDContains: strings.TrimSpace(q.Get("id"))}
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		from, err := parseDate(v)
		if err != nil {
			writeJSON(w, r, http.StatusBadRequest, errorJSON{Error: "invalid from date"})
			return
		}
		filter.From = from
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		to, err := parseDate(v)
		if err != nil {
			writeJSON(w, r, http.StatusBadRequest, errorJSON{Error: "invalid to date"})
			return
		}
		// Inclusive day: anything before the next midnight counts.
		filter.To = to.Add(24*time.Hour - time.Nanosecond)
	}

	rows, err := s.listTransactions(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := toTransactionListJSON(rows)
	for i := range out {
		if core.Kind(out[i].Tipo) == core.KindSale && s.transactions.TransactionBusy(out[i].ID) {
			out[i].Busy = true
		}
	}
	writeJSON(w, r, http.StatusOK, out)
}

// listTransactions serves from the short-lived cache, then the ledger. When
// the ledger is unreachable the local mirror answers instead, so the listing
// degrades to the last confirmed view rather than an error page.
func (s *Server) listTransactions(ctx context.Context, filter storage.ListFilter) ([]core.Transaction, error) {
	if rows, ok := s.listCache.Get(cacheKey(filter)); ok {
		return rows, nil
	}

	rows, err := s.transactions.ListTransactions(ctx)
	if err != nil {
		if core.IsRemote(err) && s.mirror != nil {
			slog.WarnContext(ctx, "Ledger listing failed, serving mirror", "error", err)
			return s.mirror.List(ctx, filter)
		}
		return nil, err
	}

	rows = applyFilter(rows, filter)
	s.listCache.Set(cacheKey(filter), rows)
	return rows, nil
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var req struct {
		ID    int64      `json:"id"`
		Monto montoField `json:"trxMonto"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	existing, err := s.resolveEditable(r, req.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	persisted, err := s.transactions.EditSale(r.Context(), existing, int64(req.Monto))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.listCache.Purge()
	writeJSON(w, r, http.StatusCreated, toTransactionJSON(persisted))
}

func (s *Server) handleRefundTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var req struct {
		ID int64 `json:"id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	existing, err := s.resolveEditable(r, req.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	persisted, err := s.transactions.VoidSale(r.Context(), existing)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.listCache.Purge()
	writeJSON(w, r, http.StatusCreated, toTransactionJSON(persisted))
}

// resolveEditable fetches the targeted row from a fresh ledger listing.
// Supersession is judged against live history, never the cache: a row some
// other row points at through trxOriginalId is already corrected or voided.
func (s *Server) resolveEditable(r *http.Request, id int64) (core.Transaction, error) {
	if id <= 0 {
		return core.Transaction{}, core.ErrTransactionNotFound
	}

	rows, err := s.transactions.ListTransactions(r.Context())
	if err != nil {
		return core.Transaction{}, err
	}

	var existing core.Transaction
	found := false
	for _, row := range rows {
		if row.ID == id {
			existing = row
			found = true
		}
		if row.OriginalID == id {
			return core.Transaction{}, core.ErrNotEditable
		}
	}
	if !found {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	return existing, nil
}

func applyFilter(rows []core.Transaction, f storage.ListFilter) []core.Transaction {
	out := make([]core.Transaction, 0, len(rows))
	for _, tx := range rows {
		if f.IDContains != "" && !strings.Contains(strconv.FormatInt(tx.ID, 10), f.IDContains) {
			continue
		}
		if !f.From.IsZero() && tx.Fecha.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && tx.Fecha.After(f.To) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

func cacheKey(f storage.ListFilter) string {
	return f.IDContains + "|" + f.From.Format(time.RFC3339) + "|" + f.To.Format(time.RFC3339)
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
