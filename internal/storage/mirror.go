// Package storage keeps a local SQLite mirror of confirmed ledger rows.
//
// The remote ledger service is the system of record; the mirror exists so the
// export worker has a durable work queue and so listings survive the service
// being briefly unreachable. Writes here are best-effort and idempotent on
// the ledger-assigned id.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tenpo/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a ledger row has not been mirrored.
var ErrNotFound = errors.New("transaction not in mirror")

type Mirror struct {
	db *sql.DB
}

func NewMirror(dbPath string) (*Mirror, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Mirror{db: db}, nil
}

func (m *Mirror) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// Record upserts one confirmed ledger row. Re-recording the same id is a
// no-op apart from refreshing the stored fields.
func (m *Mirror) Record(ctx context.Context, tx core.Transaction) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO transactions (id, monto, giro_comercio, tenpista, fecha, tipo, original_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			monto = excluded.monto,
			giro_comercio = excluded.giro_comercio,
			tenpista = excluded.tenpista,
			fecha = excluded.fecha,
			tipo = excluded.tipo,
			original_id = excluded.original_id`,
		tx.ID, tx.Monto, tx.GiroComercio, tx.Tenpista, tx.Fecha.UTC(), string(tx.Tipo), tx.OriginalID,
	)
	if err != nil {
		return fmt.Errorf("record transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction mirrored",
		"trx_id", tx.ID,
		"trx_tipo", string(tx.Tipo),
		"component", "mirror")
	return nil
}

// Get returns one mirrored row by ledger id.
func (m *Mirror) Get(ctx context.Context, id int64) (core.Transaction, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT id, monto, giro_comercio, tenpista, fecha, tipo, original_id
		FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// ListFilter narrows List results. Zero values mean "no constraint".
type ListFilter struct {
	IDContains string    // substring match on the decimal id
	From, To   time.Time // inclusive fecha range
}

// List returns mirrored rows ordered by id, optionally filtered the way the
// totals screen filters: id substring and fecha range.
func (m *Mirror) List(ctx context.Context, f ListFilter) ([]core.Transaction, error) {
	var (
		conds []string
		args  []any
	)
	if f.IDContains != "" {
		conds = append(conds, "CAST(id AS TEXT) LIKE ?")
		args = append(args, "%"+f.IDContains+"%")
	}
	if !f.From.IsZero() {
		conds = append(conds, "fecha >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		conds = append(conds, "fecha <= ?")
		args = append(args, f.To.UTC())
	}

	query := "SELECT id, monto, giro_comercio, tenpista, fecha, tipo, original_id FROM transactions"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// Unexported returns up to limit rows not yet exported, oldest first.
func (m *Mirror) Unexported(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, monto, giro_comercio, tenpista, fecha, tipo, original_id
		FROM transactions WHERE exported_at IS NULL
		ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unexported: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// MarkExported stamps the row after a successful export append.
func (m *Mirror) MarkExported(ctx context.Context, id int64) error {
	res, err := m.db.ExecContext(ctx,
		`UPDATE transactions SET exported_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		tx    core.Transaction
		fecha time.Time
		tipo  string
	)
	if err := s.Scan(&tx.ID, &tx.Monto, &tx.GiroComercio, &tx.Tenpista, &fecha, &tipo, &tx.OriginalID); err != nil {
		return core.Transaction{}, err
	}
	tx.Fecha = fecha
	tx.Tipo = core.Kind(tipo)
	return tx, nil
}
