// Package pipeline orchestrates the field data workflows over a record store:
// observation intake, soft delete, START/STOP merging, concentration
// calculation and account management.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
	"github.com/couchcryptid/pm25-field-data/internal/observability"
)

// ReferenceSource supplies the current site directory and option lists.
type ReferenceSource interface {
	Reference() domain.Reference
}

// ResultsPublisher forwards saved calculations downstream.
type ResultsPublisher interface {
	Publish(ctx context.Context, results []domain.CalculatedRecord) error
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher publishes saved calculations to p.
func WithPublisher(p ResultsPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithPublishRetry sets how many times a publish is attempted and the
// initial backoff between attempts.
func WithPublishRetry(attempts int, backoff time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.publishAttempts = attempts
		}
		s.publishBackoff = backoff
	}
}

// WithGeocoder locates sites within region for the site listing.
func WithGeocoder(g domain.Geocoder, region string) Option {
	return func(s *Service) {
		s.geocoder = g
		s.region = region
	}
}

// Service implements the field data operations.
type Service struct {
	store     domain.RecordStore
	ref       ReferenceSource
	publisher ResultsPublisher
	geocoder  domain.Geocoder
	region    string
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool

	publishAttempts int
	publishBackoff  time.Duration
}

// New creates a Service over store.
func New(store domain.RecordStore, ref ReferenceSource, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Service {
	s := &Service{
		store:           store,
		ref:             ref,
		logger:          logger,
		metrics:         metrics,
		publishAttempts: 3,
		publishBackoff:  200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var tableHeaders = []struct {
	name   string
	header []string
}{
	{domain.TableObservations, domain.ObservationHeader},
	{domain.TableMerged, domain.MergedHeader},
	{domain.TableCalculations, domain.CalculationHeader},
	{domain.TableDeleted, domain.DeletedHeader},
	{domain.TableUsers, domain.UserHeader},
}

// Bootstrap creates any missing tables. The service reports ready once it
// has succeeded.
func (s *Service) Bootstrap(ctx context.Context) error {
	for _, t := range tableHeaders {
		if err := s.store.EnsureTable(ctx, t.name, t.header); err != nil {
			return fmt.Errorf("ensure table %q: %w", t.name, err)
		}
	}
	s.ready.Store(true)
	s.logger.Info("record store ready", "tables", len(tableHeaders))
	return nil
}

// CheckReadiness returns nil once Bootstrap has succeeded and the store is
// reachable.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if !s.ready.Load() {
		return errors.New("record store has not been bootstrapped")
	}
	if _, err := s.store.ReadAll(ctx, domain.TableObservations); err != nil {
		return fmt.Errorf("record store unreachable: %w", err)
	}
	return nil
}

// Reference returns the current reference lists.
func (s *Service) Reference() domain.Reference {
	return s.ref.Reference()
}

// readTable reads a table, treating a missing table as empty.
func (s *Service) readTable(ctx context.Context, table string) (domain.Table, error) {
	t, err := s.store.ReadAll(ctx, table)
	if errors.Is(err, domain.ErrTableNotFound) {
		return domain.Table{}, nil
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("read %q: %w", table, err)
	}
	return t, nil
}

// dataRow validates that row addresses a data row of t.
func dataRow(t domain.Table, table string, row int) ([]string, error) {
	cells, ok := t.RowAt(row)
	if !ok {
		return nil, fmt.Errorf("%s row %d: %w", table, row, domain.ErrRecordNotFound)
	}
	return domain.PadRow(cells, len(t.Header)), nil
}
