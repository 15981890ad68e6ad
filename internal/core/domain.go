package core

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

// Transaction kinds as stored by the ledger service.
const (
	KindSale   Kind = "Venta"
	KindEdited Kind = "Editado"
	KindVoided Kind = "Anulado"
)

// MaxTransacciones is the hard cap on transactions attributable to a single tenpista.
const MaxTransacciones = 100

type (
	Kind string

	// Tenpista is a registered account that transactions are attributed to.
	// The authoritative record lives in the remote ledger service; copies held
	// locally are a cache seeded and refreshed from it.
	Tenpista struct {
		ID                 int64
		Nombre             string
		Apellido           string
		NroCuenta          string
		TransaccionesCount int
	}

	// Transaction is one ledger row. Edited and voided rows are new rows that
	// reference the sale they supersede through OriginalID; the sale row itself
	// is never rewritten.
	Transaction struct {
		ID           int64
		Monto        int64 // whole CLP, always positive
		GiroComercio string
		Tenpista     string // full name denormalized at submission time
		Fecha        time.Time
		Tipo         Kind
		OriginalID   int64 // 0 except on Editado/Anulado rows
	}
)

var (
	ErrInvalidMonto        = errors.New("monto must be a positive amount")
	ErrEmptyGiro           = errors.New("empty giro o comercio")
	ErrEmptyNombre         = errors.New("empty nombre")
	ErrEmptyApellido       = errors.New("empty apellido")
	ErrInvalidNroCuenta    = errors.New("nro de cuenta must be digits only")
	ErrDuplicateCuenta     = errors.New("nro de cuenta already registered")
	ErrCapacityExceeded    = errors.New("tenpista reached the limit of 100 transactions")
	ErrTenpistaNotFound    = errors.New("tenpista does not exist")
	ErrTransactionNotFound = errors.New("transaction does not exist")
	ErrNotEditable         = errors.New("only Venta transactions can be edited or voided")
	ErrInFlight            = errors.New("another operation for this target is in flight")
)

// IsValid reports whether k is one of the three ledger kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindSale, KindEdited, KindVoided:
		return true
	default:
		return false
	}
}

// FullName is the display identity captured on transactions.
func (t Tenpista) FullName() string {
	return strings.TrimSpace(t.Nombre + " " + t.Apellido)
}

// HasCapacity reports whether one more transaction may be attributed.
func (t Tenpista) HasCapacity() bool {
	return t.TransaccionesCount < MaxTransacciones
}

func (t Tenpista) Validate() error {
	if strings.TrimSpace(t.Nombre) == "" {
		return ErrEmptyNombre
	}
	if strings.TrimSpace(t.Apellido) == "" {
		return ErrEmptyApellido
	}
	cuenta := strings.TrimSpace(t.NroCuenta)
	if cuenta == "" {
		return ErrInvalidNroCuenta
	}
	for _, r := range cuenta {
		if !unicode.IsDigit(r) {
			return ErrInvalidNroCuenta
		}
	}
	return nil
}

func (tx Transaction) Validate() error {
	if tx.Monto <= 0 {
		return ErrInvalidMonto
	}
	if strings.TrimSpace(tx.GiroComercio) == "" {
		return ErrEmptyGiro
	}
	if strings.TrimSpace(tx.Tenpista) == "" {
		return errors.New("empty tenpista name")
	}
	if tx.Fecha.IsZero() {
		return errors.New("fecha cannot be zero")
	}
	if !tx.Tipo.IsValid() {
		return errors.New("invalid transaction kind")
	}
	return nil
}

// Editable reports whether the row may still be superseded. Editado and
// Anulado rows are terminal.
func (tx Transaction) Editable() bool {
	return tx.Tipo == KindSale
}
