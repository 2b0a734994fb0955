// Package cache provides record store decorators: table read memoization and
// per-operation metrics.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
	"github.com/couchcryptid/pm25-field-data/internal/lru"
	"github.com/couchcryptid/pm25-field-data/internal/observability"
)

// CachedStore memoizes ReadAll per table for a fixed TTL. Any write to a
// table drops its cached copy, and a read that overlapped a write is not
// cached.
type CachedStore struct {
	inner   domain.RecordStore
	tables  *lru.Cache[string, domain.Table]
	metrics *observability.Metrics

	mu  sync.Mutex
	gen map[string]uint64 // bumped on both sides of every write
}

// NewCachedStore wraps inner. maxTables bounds the number of cached tables.
func NewCachedStore(inner domain.RecordStore, maxTables int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedStore {
	return &CachedStore{
		inner:   inner,
		tables:  lru.New[string, domain.Table](maxTables, ttl, clock),
		metrics: metrics,
		gen:     make(map[string]uint64),
	}
}

func (c *CachedStore) ReadAll(ctx context.Context, table string) (domain.Table, error) {
	if t, ok := c.tables.Get(table); ok {
		c.metrics.StoreCache.WithLabelValues("hit").Inc()
		return copyTable(t), nil
	}
	c.metrics.StoreCache.WithLabelValues("miss").Inc()

	c.mu.Lock()
	start := c.gen[table]
	c.mu.Unlock()

	t, err := c.inner.ReadAll(ctx, table)
	if err != nil {
		return t, err
	}

	c.mu.Lock()
	if c.gen[table] == start {
		c.tables.Put(table, copyTable(t))
	}
	c.mu.Unlock()
	return t, nil
}

// invalidate marks tables as changing and drops their cached copies. Writes
// call it before and after touching the inner store.
func (c *CachedStore) invalidate(tables ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tables {
		c.gen[t]++
		c.tables.Delete(t)
	}
}

// write runs fn between two invalidations of tables.
func (c *CachedStore) write(fn func() error, tables ...string) error {
	c.invalidate(tables...)
	defer c.invalidate(tables...)
	return fn()
}

func (c *CachedStore) AppendRow(ctx context.Context, table string, row []string) error {
	return c.write(func() error { return c.inner.AppendRow(ctx, table, row) }, table)
}

func (c *CachedStore) UpdateCell(ctx context.Context, table string, row, col int, value string) error {
	return c.write(func() error { return c.inner.UpdateCell(ctx, table, row, col, value) }, table)
}

func (c *CachedStore) DeleteRow(ctx context.Context, table string, row int) error {
	return c.write(func() error { return c.inner.DeleteRow(ctx, table, row) }, table)
}

func (c *CachedStore) ReplaceTable(ctx context.Context, table string, header []string, rows [][]string) error {
	return c.write(func() error { return c.inner.ReplaceTable(ctx, table, header, rows) }, table)
}

func (c *CachedStore) EnsureTable(ctx context.Context, table string, header []string) error {
	return c.write(func() error { return c.inner.EnsureTable(ctx, table, header) }, table)
}

func (c *CachedStore) MoveRow(ctx context.Context, from string, row int, to string, rewrite func([]string) []string) error {
	return c.write(func() error { return domain.MoveRow(ctx, c.inner, from, row, to, rewrite) }, from, to)
}

// copyTable detaches callers from the cached slices.
func copyTable(t domain.Table) domain.Table {
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append([]string(nil), r...)
	}
	return domain.Table{Header: append([]string(nil), t.Header...), Rows: rows}
}
