package ledger

import (
	"time"

	"tenpo/internal/core"
)

// Wire shapes for the remote ledger service. Field names follow the service
// contract: transactions travel as trx* fields with the tenpista full name
// denormalized in "tenpista".

type tenpistaPayload struct {
	Nombre    string `json:"nombre"`
	Apellido  string `json:"apellido"`
	NroCuenta string `json:"nroCuenta"`
}

type tenpistaRecord struct {
	ID                 int64  `json:"id"`
	Nombre             string `json:"nombre"`
	Apellido           string `json:"apellido"`
	NroCuenta          string `json:"nroCuenta"`
	TransaccionesCount int    `json:"transaccionesCount"`
}

// createPayload deliberately has no id field: the service assigns one.
type createPayload struct {
	TrxMonto        int64     `json:"trxMonto"`
	TrxGiroComercio string    `json:"trxGiroComercio"`
	Tenpista        string    `json:"tenpista"`
	TrxFecha        time.Time `json:"trxFecha"`
	TrxTipo         string    `json:"trxTipo"`
}

// supersedePayload is the edit/refund shape: own id reset to the 0 sentinel,
// prior row carried in trxOriginalId.
type supersedePayload struct {
	ID              int64     `json:"id"`
	TrxMonto        int64     `json:"trxMonto"`
	TrxGiroComercio string    `json:"trxGiroComercio"`
	Tenpista        string    `json:"tenpista"`
	TrxFecha        time.Time `json:"trxFecha"`
	TrxTipo         string    `json:"trxTipo"`
	TrxOriginalID   int64     `json:"trxOriginalId"`
}

type transactionRecord struct {
	ID              int64     `json:"id"`
	TrxMonto        int64     `json:"trxMonto"`
	TrxGiroComercio string    `json:"trxGiroComercio"`
	Tenpista        string    `json:"tenpista"`
	TrxFecha        time.Time `json:"trxFecha"`
	TrxTipo         string    `json:"trxTipo"`
	TrxOriginalID   int64     `json:"trxOriginalId,omitempty"`
}

func (r tenpistaRecord) toDomain() core.Tenpista {
	return core.Tenpista{
		ID:                 r.ID,
		Nombre:             r.Nombre,
		Apellido:           r.Apellido,
		NroCuenta:          r.NroCuenta,
		TransaccionesCount: r.TransaccionesCount,
	}
}

func (r transactionRecord) toDomain() core.Transaction {
	return core.Transaction{
		ID:           r.ID,
		Monto:        r.TrxMonto,
		GiroComercio: r.TrxGiroComercio,
		Tenpista:     r.Tenpista,
		Fecha:        r.TrxFecha,
		Tipo:         core.Kind(r.TrxTipo),
		OriginalID:   r.TrxOriginalID,
	}
}
