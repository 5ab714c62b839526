// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"churn-horizon-lab/internal/observability"
)

// Environment keys.
const (
	EnvHTTPAddr         = "CHURN_HTTP_ADDR"
	EnvMetricsNamespace = "CHURN_METRICS_NAMESPACE"
	EnvPostgresDSN      = "POSTGRES_DSN"
	EnvClickhouseDSN    = "CLICKHOUSE_DSN"
	EnvUseMemory        = "CHURN_USE_MEMORY"
	EnvRunMigrations    = "CHURN_RUN_MIGRATIONS"
	EnvShutdownTimeout  = "CHURN_SHUTDOWN_TIMEOUT"
	EnvPostgresMaxConns = "CHURN_POSTGRES_MAX_CONNS"
)

// Config holds service settings. cmd/* binaries use it for flag defaults.
type Config struct {
	HTTPAddr         string
	MetricsNamespace string
	PostgresDSN      string
	ClickhouseDSN    string
	UseMemory        bool
	RunMigrations    bool
	ShutdownTimeout  time.Duration
	PostgresMaxConns int32 // 0 keeps the pgx default
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		HTTPAddr:         ":8080",
		MetricsNamespace: observability.DefaultNamespace,
		RunMigrations:    true,
		ShutdownTimeout:  15 * time.Second,
	}
}

// Load reads the given env files (".env" when none are given) without overriding
// variables already set, then builds a Config from the environment.
// A missing default .env is not an error; a missing explicit file is.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, fmt.Errorf("load env files: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from a lookup function; unset keys keep their defaults.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if v, ok := lookup(EnvHTTPAddr); ok && v != "" {
		cfg.HTTPAddr = v
	}
	if v, ok := lookup(EnvMetricsNamespace); ok && v != "" {
		cfg.MetricsNamespace = v
	}
	if v, ok := lookup(EnvPostgresDSN); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := lookup(EnvClickhouseDSN); ok {
		cfg.ClickhouseDSN = v
	}

	var err error
	if cfg.UseMemory, err = parseBool(lookup, EnvUseMemory, cfg.UseMemory); err != nil {
		return Config{}, err
	}
	if cfg.RunMigrations, err = parseBool(lookup, EnvRunMigrations, cfg.RunMigrations); err != nil {
		return Config{}, err
	}

	if v, ok := lookup(EnvShutdownTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvShutdownTimeout, err)
		}
		cfg.ShutdownTimeout = d
	}
	if v, ok := lookup(EnvPostgresMaxConns); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvPostgresMaxConns, err)
		}
		cfg.PostgresMaxConns = int32(n)
	}

	return cfg, nil
}

// Validate checks that database settings are usable.
func (c Config) Validate() error {
	if c.UseMemory {
		return nil
	}
	if c.PostgresDSN == "" || c.ClickhouseDSN == "" {
		return fmt.Errorf("%s and %s are required unless %s is set", EnvPostgresDSN, EnvClickhouseDSN, EnvUseMemory)
	}
	return nil
}

func parseBool(lookup func(string) (string, bool), key string, def bool) (bool, error) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
