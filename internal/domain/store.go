package domain

import (
	"context"
	"fmt"
)

// Table names used by the service.
const (
	TableObservations = "Observations"
	TableMerged       = "Merged Records"
	TableCalculations = "PM25 Calculations"
	TableDeleted      = "Deleted Records"
	TableUsers        = "Users"
)

// RecordStore is a spreadsheet-like store of named tables of string cells.
// Row and column positions are 1-based; row 1 is the header.
type RecordStore interface {
	// ReadAll returns the header and every data row of a table.
	ReadAll(ctx context.Context, table string) (Table, error)

	AppendRow(ctx context.Context, table string, row []string) error
	UpdateCell(ctx context.Context, table string, row, col int, value string) error
	DeleteRow(ctx context.Context, table string, row int) error

	// ReplaceTable discards the table's contents and writes header and rows.
	ReplaceTable(ctx context.Context, table string, header []string, rows [][]string) error

	// EnsureTable creates the table with header when it is missing or has no header.
	EnsureTable(ctx context.Context, table string, header []string) error
}

// RowMover is implemented by stores that can move a row between tables
// atomically. The moved row is passed through rewrite before it is appended
// to the destination table.
type RowMover interface {
	MoveRow(ctx context.Context, from string, row int, to string, rewrite func([]string) []string) error
}

// MoveRow moves a row between tables, atomically when store is a RowMover.
// Otherwise the row is appended to the destination and then deleted from the
// source; a failed delete leaves the row in both tables.
func MoveRow(ctx context.Context, store RecordStore, from string, row int, to string, rewrite func([]string) []string) error {
	if mover, ok := store.(RowMover); ok {
		return mover.MoveRow(ctx, from, row, to, rewrite)
	}

	src, err := store.ReadAll(ctx, from)
	if err != nil {
		return err
	}
	cells, ok := src.RowAt(row)
	if !ok {
		return fmt.Errorf("move %q row %d: %w", from, row, ErrRowOutOfRange)
	}
	cells = PadRow(cells, len(src.Header))
	if rewrite != nil {
		cells = rewrite(cells)
	}
	if err := store.AppendRow(ctx, to, cells); err != nil {
		return err
	}
	if err := store.DeleteRow(ctx, from, row); err != nil {
		return fmt.Errorf("row copied to %q but not removed from %q: %w", to, from, err)
	}
	return nil
}
