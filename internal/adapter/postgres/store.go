// Package postgres implements the record store on PostgreSQL. Tables are kept
// as rows of text arrays ordered by insertion; sheet positions are derived
// from that order.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS sheets (
    name   TEXT PRIMARY KEY,
    header TEXT[] NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS sheet_rows (
    id    BIGSERIAL PRIMARY KEY,
    sheet TEXT NOT NULL REFERENCES sheets(name) ON DELETE CASCADE,
    cells TEXT[] NOT NULL
);
CREATE INDEX IF NOT EXISTS sheet_rows_sheet_id_idx ON sheet_rows (sheet, id);
`

// Store implements domain.RecordStore and domain.RowMover. Every mutation
// runs in its own transaction.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an existing pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool for url and applies the schema.
func Connect(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := NewStore(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the backing tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) ReadAll(ctx context.Context, table string) (domain.Table, error) {
	var out domain.Table
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		header, err := sheetHeader(ctx, tx, table)
		if err != nil {
			return err
		}
		out.Header = header

		rows, err := tx.Query(ctx, `SELECT cells FROM sheet_rows WHERE sheet=$1 ORDER BY id`, table)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var cells []string
			if err := rows.Scan(&cells); err != nil {
				return err
			}
			out.Rows = append(out.Rows, domain.PadRow(cells, len(header)))
		}
		return rows.Err()
	})
	if err != nil {
		return domain.Table{}, fmt.Errorf("read %q: %w", table, err)
	}
	return out, nil
}

func (s *Store) AppendRow(ctx context.Context, table string, row []string) error {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := sheetHeader(ctx, tx, table); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO sheet_rows (sheet, cells) VALUES ($1, $2)`, table, nonNil(row))
		return err
	})
	if err != nil {
		return fmt.Errorf("append %q: %w", table, err)
	}
	return nil
}

func (s *Store) UpdateCell(ctx context.Context, table string, row, col int, value string) error {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := sheetHeader(ctx, tx, table); err != nil {
			return err
		}
		if col < 1 {
			return domain.ErrRowOutOfRange
		}
		id, cells, err := rowAt(ctx, tx, table, row)
		if err != nil {
			return err
		}
		cells = domain.PadRow(cells, col)
		cells[col-1] = value
		_, err = tx.Exec(ctx, `UPDATE sheet_rows SET cells=$2 WHERE id=$1`, id, cells)
		return err
	})
	if err != nil {
		return fmt.Errorf("update %q row %d col %d: %w", table, row, col, err)
	}
	return nil
}

func (s *Store) DeleteRow(ctx context.Context, table string, row int) error {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := sheetHeader(ctx, tx, table); err != nil {
			return err
		}
		id, _, err := rowAt(ctx, tx, table, row)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM sheet_rows WHERE id=$1`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete %q row %d: %w", table, row, err)
	}
	return nil
}

func (s *Store) ReplaceTable(ctx context.Context, table string, header []string, rows [][]string) error {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO sheets (name, header) VALUES ($1, $2)
            ON CONFLICT (name) DO UPDATE SET header = EXCLUDED.header`, table, nonNil(header)); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM sheet_rows WHERE sheet=$1`, table); err != nil {
			return err
		}
		data := make([][]any, len(rows))
		for i, r := range rows {
			data[i] = []any{table, nonNil(r)}
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"sheet_rows"}, []string{"sheet", "cells"}, pgx.CopyFromRows(data))
		return err
	})
	if err != nil {
		return fmt.Errorf("replace %q: %w", table, err)
	}
	return nil
}

func (s *Store) EnsureTable(ctx context.Context, table string, header []string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO sheets (name, header) VALUES ($1, $2)
        ON CONFLICT (name) DO UPDATE SET header = EXCLUDED.header
        WHERE cardinality(sheets.header) = 0`, table, nonNil(header))
	if err != nil {
		return fmt.Errorf("ensure %q: %w", table, err)
	}
	return nil
}

// MoveRow deletes a row and appends it to another table in one transaction.
func (s *Store) MoveRow(ctx context.Context, from string, row int, to string, rewrite func([]string) []string) error {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		header, err := sheetHeader(ctx, tx, from)
		if err != nil {
			return err
		}
		if _, err := sheetHeader(ctx, tx, to); err != nil {
			return err
		}
		id, cells, err := rowAt(ctx, tx, from, row)
		if err != nil {
			return err
		}
		cells = domain.PadRow(cells, len(header))
		if rewrite != nil {
			cells = rewrite(cells)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM sheet_rows WHERE id=$1`, id); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO sheet_rows (sheet, cells) VALUES ($1, $2)`, to, nonNil(cells))
		return err
	})
	if err != nil {
		return fmt.Errorf("move %q row %d to %q: %w", from, row, to, err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func sheetHeader(ctx context.Context, tx pgx.Tx, table string) ([]string, error) {
	var header []string
	err := tx.QueryRow(ctx, `SELECT header FROM sheets WHERE name=$1`, table).Scan(&header)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTableNotFound
	}
	return header, err
}

// rowAt locks and returns the row at sheet position row.
func rowAt(ctx context.Context, tx pgx.Tx, table string, row int) (int64, []string, error) {
	if row < domain.FirstDataRow {
		return 0, nil, domain.ErrRowOutOfRange
	}
	var (
		id    int64
		cells []string
	)
	err := tx.QueryRow(ctx, `SELECT id, cells FROM sheet_rows WHERE sheet=$1
        ORDER BY id OFFSET $2 LIMIT 1 FOR UPDATE`, table, row-domain.FirstDataRow).Scan(&id, &cells)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, domain.ErrRowOutOfRange
	}
	return id, cells, err
}

func nonNil(cells []string) []string {
	if cells == nil {
		return []string{}
	}
	return cells
}
