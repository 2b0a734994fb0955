// Package app assembles the record store stack selected by configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/pm25-field-data/internal/adapter/cache"
	"github.com/couchcryptid/pm25-field-data/internal/adapter/memory"
	"github.com/couchcryptid/pm25-field-data/internal/adapter/postgres"
	"github.com/couchcryptid/pm25-field-data/internal/adapter/xlsx"
	"github.com/couchcryptid/pm25-field-data/internal/config"
	"github.com/couchcryptid/pm25-field-data/internal/domain"
	"github.com/couchcryptid/pm25-field-data/internal/observability"
)

// OpenStore opens the configured backend and wraps it with metrics and,
// when CacheTTL is positive, a read cache. The returned close function
// releases the backend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (domain.RecordStore, func() error, error) {
	var (
		store   domain.RecordStore
		closeFn = func() error { return nil }
	)

	switch cfg.StoreDriver {
	case config.DriverXLSX:
		s, err := xlsx.Open(cfg.XLSXPath, logger)
		if err != nil {
			return nil, nil, err
		}
		store, closeFn = s, s.Close
	case config.DriverPostgres:
		s, err := postgres.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		store = s
		closeFn = func() error {
			s.Close()
			return nil
		}
	case config.DriverMemory:
		store = memory.NewStore()
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	logger.Info("record store opened", "driver", cfg.StoreDriver)

	store = cache.NewMeteredStore(store, metrics)
	if cfg.CacheTTL > 0 {
		store = cache.NewCachedStore(store, cfg.CacheSize, cfg.CacheTTL, nil, metrics)
	}
	return store, closeFn, nil
}
