package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tenpo/internal/core"
)

func TestCreateTransaction_OmitsID(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(transactionRecord{
			ID:              7,
			TrxMonto:        5000,
			TrxGiroComercio: "Cafe",
			Tenpista:        "Ana Lopez",
			TrxFecha:        time.Now(),
			TrxTipo:         "Venta",
		})
	}))
	defer srv.Close()

	cli := New(srv.URL, 5*time.Second)
	got, err := cli.CreateTransaction(context.Background(), core.Transaction{
		Monto:        5000,
		GiroComercio: "Cafe",
		Tenpista:     "Ana Lopez",
		Fecha:        time.Now(),
		Tipo:         core.KindSale,
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if got.ID != 7 || got.Tipo != core.KindSale {
		t.Fatalf("unexpected result %+v", got)
	}
	if _, present := body["id"]; present {
		t.Fatal("create request must not carry an id field")
	}
	if body["trxTipo"] != "Venta" {
		t.Fatalf("trxTipo = %v, want Venta", body["trxTipo"])
	}
}

func TestEditTransaction_SentinelAndOriginalID(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactionEdit" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(transactionRecord{
			ID:            42,
			TrxMonto:      3000,
			Tenpista:      "Ana Lopez",
			TrxFecha:      time.Now(),
			TrxTipo:       "Editado",
			TrxOriginalID: 7,
		})
	}))
	defer srv.Close()

	cli := New(srv.URL, 5*time.Second)
	got, err := cli.EditTransaction(context.Background(), core.Transaction{
		Monto:        3000,
		GiroComercio: "Cafe",
		Tenpista:     "Ana Lopez",
		Fecha:        time.Now(),
		Tipo:         core.KindEdited,
		OriginalID:   7,
	})
	if err != nil {
		t.Fatalf("EditTransaction: %v", err)
	}
	if body["id"] != float64(0) {
		t.Fatalf("edit request id = %v, want sentinel 0", body["id"])
	}
	if body["trxOriginalId"] != float64(7) {
		t.Fatalf("trxOriginalId = %v, want 7", body["trxOriginalId"])
	}
	if body["trxTipo"] != "Editado" {
		t.Fatalf("trxTipo = %v, want Editado", body["trxTipo"])
	}
	if got.ID != 42 || got.OriginalID != 7 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestRefundTransaction_Path(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactionRefund" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(transactionRecord{ID: 9, TrxTipo: "Anulado", TrxOriginalID: 7, TrxFecha: time.Now()})
	}))
	defer srv.Close()

	cli := New(srv.URL, 5*time.Second)
	got, err := cli.RefundTransaction(context.Background(), core.Transaction{
		Monto: 2000, GiroComercio: "Cafe", Tenpista: "Ana Lopez",
		Fecha: time.Now(), Tipo: core.KindVoided, OriginalID: 7,
	})
	if err != nil {
		t.Fatalf("RefundTransaction: %v", err)
	}
	if got.Tipo != core.KindVoided {
		t.Fatalf("tipo = %v, want Anulado", got.Tipo)
	}
}

func TestNonSuccessStatus_IsRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cli := New(srv.URL, 5*time.Second)
	_, err := cli.ListTransactions(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var re *core.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RemoteError, got %T: %v", err, err)
	}
	if re.Status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", re.Status)
	}
}

func TestTransportFailure_IsRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	cli := New(srv.URL, time.Second)
	_, err := cli.ListTenpistas(context.Background())
	if !core.IsRemote(err) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
}

func TestGetTenpista_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cli := New(srv.URL, 5*time.Second)
	_, err := cli.GetTenpista(context.Background(), 99)
	if !errors.Is(err, core.ErrTenpistaNotFound) {
		t.Fatalf("expected ErrTenpistaNotFound, got %v", err)
	}
}

func TestCreateTenpista_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p tenpistaPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(tenpistaRecord{
			ID: 3, Nombre: p.Nombre, Apellido: p.Apellido, NroCuenta: p.NroCuenta,
		})
	}))
	defer srv.Close()

	cli := New(srv.URL, 5*time.Second)
	got, err := cli.CreateTenpista(context.Background(), core.Tenpista{Nombre: "Ana", Apellido: "Lopez", NroCuenta: "1001"})
	if err != nil {
		t.Fatalf("CreateTenpista: %v", err)
	}
	if got.ID != 3 || got.NroCuenta != "1001" || got.TransaccionesCount != 0 {
		t.Fatalf("unexpected result %+v", got)
	}
}
