// Package xlsx implements the record store over a single Excel workbook.
// Each table is a worksheet whose first row is the header. The workbook is
// held in memory and written back to disk after every mutation.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Store implements domain.RecordStore and domain.RowMover on an .xlsx file.
type Store struct {
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	file *excelize.File
	// placeholder is the default sheet of a freshly created workbook; the
	// first table created takes it over.
	placeholder string
}

// Open loads the workbook at path, or starts an empty one when the file does not exist yet.
func Open(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	f, err := excelize.OpenFile(s.path)
	switch {
	case err == nil:
		s.file, s.placeholder = f, ""
	case errors.Is(err, fs.ErrNotExist):
		s.file = excelize.NewFile()
		s.placeholder = s.file.GetSheetName(0)
		s.logger.Info("creating new workbook", "path", s.path)
	default:
		return fmt.Errorf("open workbook %s: %w", s.path, err)
	}
	return nil
}

// Close releases the workbook.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

func (s *Store) ReadAll(_ context.Context, table string) (domain.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.rows(table)
	if err != nil {
		return domain.Table{}, err
	}
	if len(rows) == 0 {
		return domain.Table{}, nil
	}
	header := rows[0]
	data := make([][]string, len(rows)-1)
	for i, r := range rows[1:] {
		// GetRows drops trailing empty cells.
		data[i] = domain.PadRow(r, len(header))
	}
	return domain.Table{Header: header, Rows: data}, nil
}

func (s *Store) AppendRow(_ context.Context, table string, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.rows(table)
	if err != nil {
		return err
	}
	return s.commit(func() error {
		return s.writeRow(table, len(rows)+1, row)
	})
}

func (s *Store) UpdateCell(_ context.Context, table string, row, col int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.rows(table)
	if err != nil {
		return err
	}
	if row < domain.FirstDataRow || row > len(rows) || col < 1 {
		return fmt.Errorf("update %q row %d col %d: %w", table, row, col, domain.ErrRowOutOfRange)
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("update %q: %w", table, err)
	}
	return s.commit(func() error {
		if err := s.file.SetCellStr(table, cell, value); err != nil {
			return fmt.Errorf("update %q %s: %w", table, cell, err)
		}
		return nil
	})
}

func (s *Store) DeleteRow(_ context.Context, table string, row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.rows(table)
	if err != nil {
		return err
	}
	if row < domain.FirstDataRow || row > len(rows) {
		return fmt.Errorf("delete %q row %d: %w", table, row, domain.ErrRowOutOfRange)
	}
	return s.commit(func() error {
		if err := s.file.RemoveRow(table, row); err != nil {
			return fmt.Errorf("delete %q row %d: %w", table, row, err)
		}
		return nil
	})
}

func (s *Store) ReplaceTable(_ context.Context, table string, header []string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commit(func() error {
		if err := s.ensureSheet(table); err != nil {
			return err
		}
		existing, err := s.rows(table)
		if err != nil {
			return err
		}
		for r := len(existing); r >= 1; r-- {
			if err := s.file.RemoveRow(table, r); err != nil {
				return fmt.Errorf("clear %q row %d: %w", table, r, err)
			}
		}
		if err := s.writeRow(table, 1, header); err != nil {
			return err
		}
		for i, row := range rows {
			if err := s.writeRow(table, i+domain.FirstDataRow, row); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) EnsureTable(_ context.Context, table string, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rows, err := s.rows(table); err == nil && len(rows) > 0 && len(rows[0]) > 0 {
		return nil
	}
	return s.commit(func() error {
		if err := s.ensureSheet(table); err != nil {
			return err
		}
		return s.writeRow(table, 1, header)
	})
}

// MoveRow removes a row from one sheet and appends it to another, saving once.
func (s *Store) MoveRow(_ context.Context, from string, row int, to string, rewrite func([]string) []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.rows(from)
	if err != nil {
		return err
	}
	dst, err := s.rows(to)
	if err != nil {
		return err
	}
	if row < domain.FirstDataRow || row > len(src) {
		return fmt.Errorf("move %q row %d: %w", from, row, domain.ErrRowOutOfRange)
	}

	moved := domain.PadRow(src[row-1], len(src[0]))
	if rewrite != nil {
		moved = rewrite(moved)
	}
	return s.commit(func() error {
		if err := s.writeRow(to, len(dst)+1, moved); err != nil {
			return err
		}
		if err := s.file.RemoveRow(from, row); err != nil {
			return fmt.Errorf("move %q row %d: %w", from, row, err)
		}
		return nil
	})
}

// commit applies fn and saves the workbook. If either step fails the
// in-memory workbook is reloaded from disk, so reads keep matching the file.
func (s *Store) commit(fn func() error) error {
	err := fn()
	if err == nil {
		err = s.save()
	}
	if err == nil {
		return nil
	}
	_ = s.file.Close()
	if rerr := s.load(); rerr != nil {
		s.logger.Error("reload workbook after failed write", "path", s.path, "error", rerr)
	}
	return err
}

// rows returns every row of a sheet including the header.
func (s *Store) rows(table string) ([][]string, error) {
	idx, err := s.file.GetSheetIndex(table)
	if err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q: %w", table, domain.ErrTableNotFound)
	}
	rows, err := s.file.GetRows(table)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", table, err)
	}
	return rows, nil
}

func (s *Store) ensureSheet(table string) error {
	if idx, err := s.file.GetSheetIndex(table); err == nil && idx >= 0 {
		return nil
	}
	if s.placeholder != "" {
		if err := s.file.SetSheetName(s.placeholder, table); err != nil {
			return fmt.Errorf("create sheet %q: %w", table, err)
		}
		s.placeholder = ""
		return nil
	}
	if _, err := s.file.NewSheet(table); err != nil {
		return fmt.Errorf("create sheet %q: %w", table, err)
	}
	return nil
}

func (s *Store) writeRow(table string, row int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("write %q row %d: %w", table, row, err)
	}
	values := append([]string(nil), cells...)
	if err := s.file.SetSheetRow(table, cell, &values); err != nil {
		return fmt.Errorf("write %q row %d: %w", table, row, err)
	}
	return nil
}

func (s *Store) save() error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save workbook: %w", err)
		}
	}
	if err := s.file.SaveAs(s.path); err != nil {
		return fmt.Errorf("save workbook %s: %w", s.path, err)
	}
	return nil
}
