package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tenpo/internal/core"
)

// Wire shapes. Field names follow the ledger service contract so API clients
// see one vocabulary end to end.
type (
	tenpistaJSON struct {
		ID                 int64  `json:"id"`
		Nombre             string `json:"nombre"`
		Apellido           string `json:"apellido"`
		NroCuenta          string `json:"nroCuenta"`
		TransaccionesCount int    `json:"transaccionesCount"`
	}

	transactionJSON struct {
		ID           int64     `json:"id"`
		Monto        int64     `json:"trxMonto"`
		GiroComercio string    `json:"trxGiroComercio"`
		Tenpista     string    `json:"tenpista"`
		Fecha        time.Time `json:"trxFecha"`
		Tipo         string    `json:"trxTipo"`
		OriginalID   int64     `json:"trxOriginalId,omitempty"`
		Busy         bool      `json:"busy,omitempty"`
	}

	errorJSON struct {
		Error string `json:"error"`
	}
)

func toTenpistaJSON(t core.Tenpista) tenpistaJSON {
	return tenpistaJSON{
		ID:                 t.ID,
		Nombre:             t.Nombre,
		Apellido:           t.Apellido,
		NroCuenta:          t.NroCuenta,
		TransaccionesCount: t.TransaccionesCount,
	}
}

func toTransactionJSON(tx core.Transaction) transactionJSON {
	return transactionJSON{
		ID:           tx.ID,
		Monto:        tx.Monto,
		GiroComercio: tx.GiroComercio,
		Tenpista:     tx.Tenpista,
		Fecha:        tx.Fecha,
		Tipo:         string(tx.Tipo),
		OriginalID:   tx.OriginalID,
	}
}

func toTransactionListJSON(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionJSON(tx))
	}
	return out
}

// montoField accepts a plain JSON number or a display string with thousands
// separators ("1.250.000").
type montoField int64

func (m *montoField) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := core.ParseMonto(s)
		if err != nil {
			return err
		}
		*m = montoField(v)
		return nil
	}
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return core.ErrInvalidMonto
	}
	*m = montoField(v)
	return nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode response", "error", err, "url", r.URL.Path)
	}
}

// writeError maps domain errors onto HTTP statuses: validation problems are
// 422, conflicts over shared state are 409, a ledger outage is 502.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrInvalidMonto),
		errors.Is(err, core.ErrEmptyGiro),
		errors.Is(err, core.ErrEmptyNombre),
		errors.Is(err, core.ErrEmptyApellido),
		errors.Is(err, core.ErrInvalidNroCuenta):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrDuplicateCuenta),
		errors.Is(err, core.ErrCapacityExceeded),
		errors.Is(err, core.ErrNotEditable),
		errors.Is(err, core.ErrInFlight):
		status = http.StatusConflict
	case errors.Is(err, core.ErrTenpistaNotFound),
		errors.Is(err, core.ErrTransactionNotFound):
		status = http.StatusNotFound
	case core.IsRemote(err):
		status = http.StatusBadGateway
	case isDecodeError(err):
		status = http.StatusBadRequest
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err,
			"status", status,
			"url", r.URL.Path)
	}
	writeJSON(w, r, status, errorJSON{Error: err.Error()})
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return true
	}
	// DisallowUnknownFields and io errors surface as plain errors.
	msg := err.Error()
	return strings.Contains(msg, "unknown field") || strings.Contains(msg, "unexpected EOF") || strings.Contains(msg, "EOF")
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	w.WriteHeader(http.StatusMethodNotAllowed)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrTenpistaNotFound
	}
	return id, nil
}
