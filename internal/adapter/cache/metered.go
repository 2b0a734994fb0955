package cache

import (
	"context"
	"time"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
	"github.com/couchcryptid/pm25-field-data/internal/observability"
)

// MeteredStore records the outcome and duration of every store operation.
type MeteredStore struct {
	inner   domain.RecordStore
	metrics *observability.Metrics
}

// NewMeteredStore wraps inner.
func NewMeteredStore(inner domain.RecordStore, metrics *observability.Metrics) *MeteredStore {
	return &MeteredStore{inner: inner, metrics: metrics}
}

func (m *MeteredStore) observe(op string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.metrics.StoreOperations.WithLabelValues(op, outcome).Inc()
	m.metrics.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *MeteredStore) ReadAll(ctx context.Context, table string) (t domain.Table, err error) {
	defer func(start time.Time) { m.observe("read_all", start, err) }(time.Now())
	return m.inner.ReadAll(ctx, table)
}

func (m *MeteredStore) AppendRow(ctx context.Context, table string, row []string) (err error) {
	defer func(start time.Time) { m.observe("append_row", start, err) }(time.Now())
	return m.inner.AppendRow(ctx, table, row)
}

func (m *MeteredStore) UpdateCell(ctx context.Context, table string, row, col int, value string) (err error) {
	defer func(start time.Time) { m.observe("update_cell", start, err) }(time.Now())
	return m.inner.UpdateCell(ctx, table, row, col, value)
}

func (m *MeteredStore) DeleteRow(ctx context.Context, table string, row int) (err error) {
	defer func(start time.Time) { m.observe("delete_row", start, err) }(time.Now())
	return m.inner.DeleteRow(ctx, table, row)
}

func (m *MeteredStore) ReplaceTable(ctx context.Context, table string, header []string, rows [][]string) (err error) {
	defer func(start time.Time) { m.observe("replace_table", start, err) }(time.Now())
	return m.inner.ReplaceTable(ctx, table, header, rows)
}

func (m *MeteredStore) EnsureTable(ctx context.Context, table string, header []string) (err error) {
	defer func(start time.Time) { m.observe("ensure_table", start, err) }(time.Now())
	return m.inner.EnsureTable(ctx, table, header)
}

func (m *MeteredStore) MoveRow(ctx context.Context, from string, row int, to string, rewrite func([]string) []string) (err error) {
	defer func(start time.Time) { m.observe("move_row", start, err) }(time.Now())
	return domain.MoveRow(ctx, m.inner, from, row, to, rewrite)
}
