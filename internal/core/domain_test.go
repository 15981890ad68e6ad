package core

import (
	"testing"
	"time"
)

func TestTenpistaValidate(t *testing.T) {
	good := Tenpista{Nombre: "Ana", Apellido: "Lopez", NroCuenta: "1001"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Tenpista{
		{Nombre: "", Apellido: "Lopez", NroCuenta: "1001"},
		{Nombre: "Ana", Apellido: "", NroCuenta: "1001"},
		{Nombre: "Ana", Apellido: "Lopez", NroCuenta: ""},
		{Nombre: "Ana", Apellido: "Lopez", NroCuenta: "10-01"},
		{Nombre: "Ana", Apellido: "Lopez", NroCuenta: "cuenta"},
	}
	for i, tp := range bads {
		if err := tp.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTenpistaFullName(t *testing.T) {
	tp := Tenpista{Nombre: "Ana", Apellido: "Lopez"}
	if got := tp.FullName(); got != "Ana Lopez" {
		t.Fatalf("expected 'Ana Lopez', got %q", got)
	}
}

func TestTenpistaHasCapacity(t *testing.T) {
	cases := []struct {
		count int
		ok    bool
	}{
		{0, true},
		{99, true},
		{100, false},
	}
	for i, tc := range cases {
		tp := Tenpista{TransaccionesCount: tc.count}
		if tp.HasCapacity() != tc.ok {
			t.Fatalf("case %d: count %d expected HasCapacity=%v", i, tc.count, tc.ok)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Monto:        5000,
		GiroComercio: "Cafe",
		Tenpista:     "Ana Lopez",
		Fecha:        time.Now(),
		Tipo:         KindSale,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Monto: 0, GiroComercio: "Cafe", Tenpista: "Ana Lopez", Fecha: time.Now(), Tipo: KindSale},
		{Monto: -1, GiroComercio: "Cafe", Tenpista: "Ana Lopez", Fecha: time.Now(), Tipo: KindSale},
		{Monto: 1, GiroComercio: "", Tenpista: "Ana Lopez", Fecha: time.Now(), Tipo: KindSale},
		{Monto: 1, GiroComercio: "Cafe", Tenpista: "", Fecha: time.Now(), Tipo: KindSale},
		{Monto: 1, GiroComercio: "Cafe", Tenpista: "Ana Lopez", Fecha: time.Time{}, Tipo: KindSale},
		{Monto: 1, GiroComercio: "Cafe", Tenpista: "Ana Lopez", Fecha: time.Now(), Tipo: Kind("Otro")},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTransactionEditable(t *testing.T) {
	if !(Transaction{Tipo: KindSale}).Editable() {
		t.Fatal("Venta rows must be editable")
	}
	if (Transaction{Tipo: KindEdited}).Editable() {
		t.Fatal("Editado rows must be terminal")
	}
	if (Transaction{Tipo: KindVoided}).Editable() {
		t.Fatal("Anulado rows must be terminal")
	}
}
