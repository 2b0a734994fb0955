package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Store drivers.
const (
	DriverXLSX     = "xlsx"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// devJWTSecret signs tokens for the memory driver when JWT_SECRET is unset.
const devJWTSecret = "pm25-dev-secret"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Record store.
	StoreDriver string
	XLSXPath    string
	PostgresURL string
	CacheTTL    time.Duration
	CacheSize   int

	// Session tokens.
	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	// RefdataPath is an optional YAML file of sites and option lists.
	RefdataPath string

	// Results publishing is enabled when KafkaBrokers is set.
	KafkaBrokers      []string
	KafkaResultsTopic string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
	GeocodeRegion   string
	GeocodeCountry  string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s", false)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("CACHE_TTL", "30s", true)
	if err != nil {
		return nil, err
	}
	tokenTTL, err := parseDuration("TOKEN_TTL", "12h", false)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("CACHE_SIZE", 32)
	if err != nil {
		return nil, err
	}
	mapboxCacheSize, err := parsePositiveInt("MAPBOX_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	var brokers []string
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		StoreDriver: strings.ToLower(sharedcfg.EnvOrDefault("STORE_DRIVER", DriverXLSX)),
		XLSXPath:    sharedcfg.EnvOrDefault("XLSX_PATH", "data/pm25.xlsx"),
		PostgresURL: os.Getenv("POSTGRES_URL"),
		CacheTTL:    cacheTTL,
		CacheSize:   cacheSize,

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: sharedcfg.EnvOrDefault("JWT_ISSUER", "pm25-field-data"),
		TokenTTL:  tokenTTL,

		RefdataPath: os.Getenv("REFDATA_PATH"),

		KafkaBrokers:      brokers,
		KafkaResultsTopic: sharedcfg.EnvOrDefault("KAFKA_RESULTS_TOPIC", "pm25-calculations"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: mapboxCacheSize,
		GeocodeRegion:   sharedcfg.EnvOrDefault("GEOCODE_REGION", "Greater Accra, Ghana"),
		GeocodeCountry:  sharedcfg.EnvOrDefault("GEOCODE_COUNTRY", "gh"),
	}

	switch cfg.StoreDriver {
	case DriverXLSX:
		if cfg.XLSXPath == "" {
			return nil, errors.New("XLSX_PATH is required for the xlsx store")
		}
	case DriverPostgres:
		if cfg.PostgresURL == "" {
			return nil, errors.New("POSTGRES_URL is required for the postgres store")
		}
	case DriverMemory:
		if cfg.JWTSecret == "" {
			cfg.JWTSecret = devJWTSecret
		}
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: must be xlsx, postgres or memory", cfg.StoreDriver)
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.KafkaBrokers != nil && cfg.KafkaResultsTopic == "" {
		return nil, errors.New("KAFKA_RESULTS_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// PublishEnabled reports whether saved results go to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// parseDuration reads a positive duration, or zero when allowZero is set.
func parseDuration(key, fallback string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}
