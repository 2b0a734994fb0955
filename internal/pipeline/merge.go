package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
)

// MergeResult is the outcome of a merge.
type MergeResult struct {
	Summary domain.PairingSummary `json:"summary"`
	Records []domain.PairedRecord `json:"records"`
}

// Merge pairs the observations matching f and replaces the merged records
// table with the result. When nothing pairs the table is left untouched and
// domain.ErrNothingToMerge is returned with the summary.
func (s *Service) Merge(ctx context.Context, f domain.Filter) (MergeResult, error) {
	t, err := s.readTable(ctx, domain.TableObservations)
	if err != nil {
		return MergeResult{}, err
	}

	rows := domain.FilterObservations(domain.DecodeObservations(t), f)
	paired, summary := domain.Pair(rows)

	s.metrics.OrphanRows.WithLabelValues(string(domain.EntryStart)).Set(float64(summary.OrphanStarts))
	s.metrics.OrphanRows.WithLabelValues(string(domain.EntryStop)).Set(float64(summary.OrphanStops))

	if len(paired) == 0 {
		s.logger.Info("nothing to merge",
			"starts", summary.Starts,
			"stops", summary.Stops,
			"site", f.Site,
		)
		return MergeResult{Summary: summary}, domain.ErrNothingToMerge
	}

	cells := make([][]string, len(paired))
	for i, p := range paired {
		cells[i] = p.Cells()
		paired[i].Row = i + domain.FirstDataRow
	}
	if err := s.store.ReplaceTable(ctx, domain.TableMerged, domain.MergedHeader, cells); err != nil {
		return MergeResult{}, fmt.Errorf("write merged records: %w", err)
	}

	s.metrics.Merges.Inc()
	s.metrics.PairedRecords.Set(float64(len(paired)))
	s.logger.Info("merge complete",
		"paired", summary.Paired,
		"orphan_starts", summary.OrphanStarts,
		"orphan_stops", summary.OrphanStops,
	)
	return MergeResult{Summary: summary, Records: paired}, nil
}

// ListMerged returns merged records matching f by site and start date.
func (s *Service) ListMerged(ctx context.Context, f domain.Filter) ([]domain.PairedRecord, error) {
	t, err := s.readTable(ctx, domain.TableMerged)
	if err != nil {
		return nil, err
	}
	return domain.FilterPaired(domain.DecodePaired(t), f), nil
}

// Calculate attaches weights to the merged rows named by entries and
// computes each concentration. Results follow the order of entries.
func (s *Service) Calculate(ctx context.Context, entries []domain.WeightEntry) ([]domain.CalculatedRecord, error) {
	t, err := s.readTable(ctx, domain.TableMerged)
	if err != nil {
		return nil, err
	}

	byRow := make(map[int]domain.PairedRecord, len(t.Rows))
	for _, p := range domain.DecodePaired(t) {
		byRow[p.Row] = p
	}

	out := make([]domain.CalculatedRecord, 0, len(entries))
	for _, e := range entries {
		p, ok := byRow[e.Row]
		if !ok {
			return nil, fmt.Errorf("%s row %d: %w", domain.TableMerged, e.Row, domain.ErrRecordNotFound)
		}
		c := domain.Calculate(p, e.PreWeightG, e.PostWeightG)
		outcome := "valid"
		if !c.Concentration.Valid() {
			outcome = "flagged"
		}
		s.metrics.Calculations.WithLabelValues(outcome).Inc()
		out = append(out, c)
	}
	return out, nil
}

// SaveCalculations stamps and appends results to the calculations table,
// then publishes them when a publisher is configured. Publish failures are
// logged and do not fail the save.
func (s *Service) SaveCalculations(ctx context.Context, user string, results []domain.CalculatedRecord) ([]domain.CalculatedRecord, error) {
	savedAt := domain.Timestamp(domain.Now())
	saved := make([]domain.CalculatedRecord, len(results))
	for i, r := range results {
		r.SavedBy = user
		r.SavedAt = savedAt
		if err := s.store.AppendRow(ctx, domain.TableCalculations, r.Cells()); err != nil {
			return saved[:i], fmt.Errorf("append calculation %d of %d: %w", i+1, len(results), err)
		}
		saved[i] = r
		s.metrics.CalculationsSaved.Inc()
	}
	s.logger.Info("calculations saved", "user", user, "count", len(saved))

	if s.publisher != nil && len(saved) > 0 {
		if err := s.publish(ctx, saved); err != nil {
			s.metrics.PublishErrors.Inc()
			s.logger.Error("publish calculations failed", "error", err, "count", len(saved))
		} else {
			s.metrics.ResultsPublished.Add(float64(len(saved)))
		}
	}
	return saved, nil
}

// ListSaved returns saved calculations matching f by site and start date.
func (s *Service) ListSaved(ctx context.Context, f domain.Filter) ([]domain.CalculatedRecord, error) {
	t, err := s.readTable(ctx, domain.TableCalculations)
	if err != nil {
		return nil, err
	}
	return domain.FilterCalculated(domain.DecodeCalculated(t), f), nil
}
