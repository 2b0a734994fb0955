// Package memory implements an in-process record store.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
)

// Store keeps tables in memory. It implements domain.RecordStore and domain.RowMover.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*domain.Table
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{tables: make(map[string]*domain.Table)}
}

func (s *Store) ReadAll(_ context.Context, table string) (domain.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[table]
	if !ok {
		return domain.Table{}, fmt.Errorf("read %q: %w", table, domain.ErrTableNotFound)
	}
	return clone(*t), nil
}

func (s *Store) AppendRow(_ context.Context, table string, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("append %q: %w", table, domain.ErrTableNotFound)
	}
	t.Rows = append(t.Rows, append([]string(nil), row...))
	return nil
}

func (s *Store) UpdateCell(_ context.Context, table string, row, col int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("update %q: %w", table, domain.ErrTableNotFound)
	}
	i := row - domain.FirstDataRow
	if i < 0 || i >= len(t.Rows) || col < 1 {
		return fmt.Errorf("update %q row %d col %d: %w", table, row, col, domain.ErrRowOutOfRange)
	}
	t.Rows[i] = domain.PadRow(t.Rows[i], col)
	t.Rows[i][col-1] = value
	return nil
}

func (s *Store) DeleteRow(_ context.Context, table string, row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.deleteLocked(table, row)
	return err
}

func (s *Store) deleteLocked(table string, row int) ([]string, error) {
	t, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("delete %q: %w", table, domain.ErrTableNotFound)
	}
	i := row - domain.FirstDataRow
	if i < 0 || i >= len(t.Rows) {
		return nil, fmt.Errorf("delete %q row %d: %w", table, row, domain.ErrRowOutOfRange)
	}
	removed := t.Rows[i]
	t.Rows = append(t.Rows[:i:i], t.Rows[i+1:]...)
	return removed, nil
}

func (s *Store) ReplaceTable(_ context.Context, table string, header []string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables[table] = &domain.Table{Header: append([]string(nil), header...), Rows: cloneRows(rows)}
	return nil
}

func (s *Store) EnsureTable(_ context.Context, table string, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tables[table]; ok && len(t.Header) > 0 {
		return nil
	}
	s.tables[table] = &domain.Table{Header: append([]string(nil), header...)}
	return nil
}

// MoveRow removes a row from one table and appends it to another under a single lock.
func (s *Store) MoveRow(_ context.Context, from string, row int, to string, rewrite func([]string) []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dst, ok := s.tables[to]
	if !ok {
		return fmt.Errorf("move to %q: %w", to, domain.ErrTableNotFound)
	}
	removed, err := s.deleteLocked(from, row)
	if err != nil {
		return err
	}
	if rewrite != nil {
		removed = rewrite(removed)
	}
	dst.Rows = append(dst.Rows, removed)
	return nil
}

func clone(t domain.Table) domain.Table {
	return domain.Table{Header: append([]string(nil), t.Header...), Rows: cloneRows(t.Rows)}
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
