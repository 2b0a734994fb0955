package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
)

// SubmitObservation validates o, stamps it with the submitter and time, and
// appends it to the observations table.
func (s *Service) SubmitObservation(ctx context.Context, user string, o domain.Observation) (domain.Observation, error) {
	ref := s.ref.Reference()
	o = o.Normalize(ref)
	if err := o.Validate(ref); err != nil {
		s.metrics.ValidationFailures.Inc()
		s.logger.Warn("observation rejected", "user", user, "site_id", o.SiteID, "error", err)
		return domain.Observation{}, err
	}

	o.Row = 0
	o.SubmittedBy = user
	o.SubmittedAt = domain.Timestamp(domain.Now())

	if err := s.store.AppendRow(ctx, domain.TableObservations, o.Cells()); err != nil {
		return domain.Observation{}, fmt.Errorf("append observation: %w", err)
	}

	s.metrics.ObservationsSubmitted.WithLabelValues(string(o.EntryType)).Inc()
	s.logger.Info("observation submitted",
		"user", user,
		"entry_type", o.EntryType,
		"site_id", o.SiteID,
		"date", o.Date,
	)
	return o, nil
}

// ListObservations returns observations matching f by site and submission date.
func (s *Service) ListObservations(ctx context.Context, f domain.Filter) ([]domain.Observation, error) {
	t, err := s.readTable(ctx, domain.TableObservations)
	if err != nil {
		return nil, err
	}
	return domain.FilterObservations(domain.DecodeObservations(t), f), nil
}

// EditObservation validates o and rewrites the cells of row that changed.
// The submission stamps are kept.
func (s *Service) EditObservation(ctx context.Context, row int, o domain.Observation) (domain.Observation, error) {
	ref := s.ref.Reference()
	o = o.Normalize(ref)
	if err := o.Validate(ref); err != nil {
		s.metrics.ValidationFailures.Inc()
		return domain.Observation{}, err
	}

	t, err := s.readTable(ctx, domain.TableObservations)
	if err != nil {
		return domain.Observation{}, err
	}
	current, err := dataRow(t, domain.TableObservations, row)
	if err != nil {
		return domain.Observation{}, err
	}

	existing := domain.DecodeObservations(domain.Table{Header: t.Header, Rows: [][]string{current}})[0]
	o.SubmittedBy = existing.SubmittedBy
	o.SubmittedAt = existing.SubmittedAt

	cells := o.Cells()
	changed := 0
	for i, col := range domain.ObservationHeader {
		idx := t.ColumnIndex(col)
		if idx == 0 || current[idx-1] == cells[i] {
			continue
		}
		if err := s.store.UpdateCell(ctx, domain.TableObservations, row, idx, cells[i]); err != nil {
			return domain.Observation{}, fmt.Errorf("update %q row %d: %w", col, row, err)
		}
		changed++
	}

	s.logger.Info("observation edited", "row", row, "cells_changed", changed)
	o.Row = row
	return o, nil
}

// SoftDelete moves an observation row to the deleted records table.
func (s *Service) SoftDelete(ctx context.Context, user string, row int) error {
	if row < domain.FirstDataRow {
		return fmt.Errorf("%s row %d: %w", domain.TableObservations, row, domain.ErrRecordNotFound)
	}
	err := domain.MoveRow(ctx, s.store, domain.TableObservations, row, domain.TableDeleted, func(cells []string) []string {
		return domain.StampDeleted(cells, user)
	})
	if err != nil {
		return moveError(domain.TableObservations, row, err)
	}
	s.metrics.RecordsDeleted.Inc()
	s.logger.Info("observation deleted", "row", row, "user", user)
	return nil
}

// ListDeleted returns every soft-deleted observation.
func (s *Service) ListDeleted(ctx context.Context) ([]domain.DeletedRecord, error) {
	t, err := s.readTable(ctx, domain.TableDeleted)
	if err != nil {
		return nil, err
	}
	return domain.DecodeDeleted(t), nil
}

// Restore moves a deleted row back to the observations table without its
// deletion stamps.
func (s *Service) Restore(ctx context.Context, row int) error {
	if row < domain.FirstDataRow {
		return fmt.Errorf("%s row %d: %w", domain.TableDeleted, row, domain.ErrRecordNotFound)
	}
	if err := domain.MoveRow(ctx, s.store, domain.TableDeleted, row, domain.TableObservations, domain.UnstampDeleted); err != nil {
		return moveError(domain.TableDeleted, row, err)
	}
	s.metrics.RecordsRestored.Inc()
	s.logger.Info("observation restored", "row", row)
	return nil
}

func moveError(table string, row int, err error) error {
	if errors.Is(err, domain.ErrRowOutOfRange) || errors.Is(err, domain.ErrTableNotFound) {
		return fmt.Errorf("%s row %d: %w", table, row, domain.ErrRecordNotFound)
	}
	return fmt.Errorf("move %s row %d: %w", table, row, err)
}
