package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	httpadapter "github.com/couchcryptid/pm25-field-data/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/pm25-field-data/internal/adapter/kafka"
	"github.com/couchcryptid/pm25-field-data/internal/adapter/mapbox"
	"github.com/couchcryptid/pm25-field-data/internal/api"
	"github.com/couchcryptid/pm25-field-data/internal/app"
	"github.com/couchcryptid/pm25-field-data/internal/auth"
	"github.com/couchcryptid/pm25-field-data/internal/config"
	"github.com/couchcryptid/pm25-field-data/internal/observability"
	"github.com/couchcryptid/pm25-field-data/internal/pipeline"
	"github.com/couchcryptid/pm25-field-data/internal/refdata"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := app.OpenStore(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to open record store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	ref := refdata.Defaults()
	if cfg.RefdataPath != "" {
		ref, err = refdata.Load(cfg.RefdataPath)
		if err != nil {
			logger.Error("failed to load reference data", "path", cfg.RefdataPath, "error", err)
			os.Exit(1)
		}
	}
	source := refdata.NewSource(ref)
	if cfg.RefdataPath != "" {
		go func() {
			if err := source.Watch(ctx, cfg.RefdataPath, logger); err != nil {
				logger.Error("reference data watcher stopped", "error", err)
			}
		}()
	}

	var opts []pipeline.Option

	// Site geocoding (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics, mapbox.WithCountry(cfg.GeocodeCountry))
		opts = append(opts, pipeline.WithGeocoder(mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics), cfg.GeocodeRegion))
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var publisher *kafkaadapter.Publisher
	if cfg.PublishEnabled() {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		opts = append(opts, pipeline.WithPublisher(publisher))
		logger.Info("results publishing enabled", "topic", cfg.KafkaResultsTopic, "brokers", cfg.KafkaBrokers)
	}

	svc := pipeline.New(store, source, logger, metrics, opts...)
	if err := svc.Bootstrap(ctx); err != nil {
		logger.Error("failed to prepare tables", "error", err)
		os.Exit(1)
	}

	authCfg := auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, TTL: cfg.TokenTTL}
	handler := api.NewHandler(svc, authCfg, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, handler.Routes(), logger)

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if err := closeStore(); err != nil {
		logger.Error("record store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
