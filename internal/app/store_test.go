package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/pm25-field-data/internal/adapter/cache"
	"github.com/couchcryptid/pm25-field-data/internal/config"
	"github.com/couchcryptid/pm25-field-data/internal/domain"
	"github.com/couchcryptid/pm25-field-data/internal/observability"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestOpenStore_Memory(t *testing.T) {
	store, closeFn, err := OpenStore(context.Background(), &config.Config{StoreDriver: config.DriverMemory}, discard(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	defer func() { require.NoError(t, closeFn()) }()

	_, ok := store.(*cache.MeteredStore)
	assert.True(t, ok, "cache disabled: only the metrics decorator applies")
}

func TestOpenStore_XLSXCached(t *testing.T) {
	cfg := &config.Config{
		StoreDriver: config.DriverXLSX,
		XLSXPath:    filepath.Join(t.TempDir(), "pm25.xlsx"),
		CacheTTL:    time.Minute,
		CacheSize:   8,
	}
	store, closeFn, err := OpenStore(context.Background(), cfg, discard(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	defer func() { require.NoError(t, closeFn()) }()

	_, ok := store.(*cache.CachedStore)
	require.True(t, ok)

	ctx := context.Background()
	require.NoError(t, store.EnsureTable(ctx, domain.TableUsers, domain.UserHeader))
	table, err := store.ReadAll(ctx, domain.TableUsers)
	require.NoError(t, err)
	assert.Equal(t, domain.UserHeader, table.Header)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, _, err := OpenStore(context.Background(), &config.Config{StoreDriver: "sheets"}, discard(), observability.NewMetricsForTesting())
	require.Error(t, err)
}
