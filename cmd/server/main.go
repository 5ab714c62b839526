// Package main runs the churn forecast HTTP service:
// - REST endpoints for horizon, segment and sweep forecasts
// - Persisted runs (PostgreSQL + ClickHouse, or in-memory)
// - WebSocket scenario stream
// - Prometheus metrics on /metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"churn-horizon-lab/internal/api"
	"churn-horizon-lab/internal/config"
	"churn-horizon-lab/internal/observability"
	"churn-horizon-lab/internal/orchestrator"
	"churn-horizon-lab/internal/storage"
	chstore "churn-horizon-lab/internal/storage/clickhouse"
	"churn-horizon-lab/internal/storage/memory"
	"churn-horizon-lab/internal/storage/migrations"
	pgstore "churn-horizon-lab/internal/storage/postgres"
)

// stores holds the storage backends used by the orchestrator.
type stores struct {
	runStore   storage.ForecastRunStore
	pointStore storage.HorizonPointStore
	backend    string
	checks     map[string]func(context.Context) error
}

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Environment (and .env) provides flag defaults
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	addr := flag.String("addr", cfg.HTTPAddr, "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", cfg.UseMemory, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	runMigrations := flag.Bool("migrate", cfg.RunMigrations, "Apply embedded schema migrations on startup")
	shutdownTimeout := flag.Duration("shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")
	verbose := flag.Bool("verbose", false, "Log every stored run")

	flag.Parse()

	cfg.HTTPAddr = *addr
	cfg.PostgresDSN = *postgresDSN
	cfg.ClickhouseDSN = *clickhouseDSN
	cfg.UseMemory = *useMemory
	cfg.RunMigrations = *runMigrations
	cfg.ShutdownTimeout = *shutdownTimeout

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v (use --use-memory for in-memory storage)", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	m := observability.NewMetrics(cfg.MetricsNamespace, nil)
	orch := orchestrator.New(orchestrator.Options{
		RunStore:   st.runStore,
		PointStore: st.pointStore,
		Metrics:    m,
		Backend:    st.backend,
		Logger:     log.New(os.Stdout, "[orchestrator] ", log.LstdFlags|log.Lshortfile),
		Verbose:    *verbose,
	})

	h := api.NewHandler(orch, m, log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lshortfile))
	for _, name := range []string{"postgres", "clickhouse"} {
		if check, ok := st.checks[name]; ok {
			h.WithReadiness(name, check)
		}
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(h, observability.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(h.Shutdown)

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("Listening on %s (storage: %s)", cfg.HTTPAddr, st.backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-errCh:
		if err != nil {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}

	// Second signal forces exit
	go func() {
		sig := <-sigCh
		logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
		os.Exit(1)
	}()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Graceful shutdown failed after %v: %v", cfg.ShutdownTimeout, err)
	}

	logger.Println("Shutdown complete")
}

// createStores opens the configured backends, applying migrations when enabled.
func createStores(ctx context.Context, cfg config.Config, logger *log.Logger) (*stores, func(), error) {
	if cfg.UseMemory {
		return &stores{
			runStore:   memory.NewForecastRunStore(),
			pointStore: memory.NewHorizonPointStore(),
			backend:    "memory",
		}, func() {}, nil
	}

	// PostgreSQL
	opts := []pgstore.PoolOption{pgstore.WithApplicationName("churn-horizon-lab")}
	if cfg.PostgresMaxConns > 0 {
		opts = append(opts, pgstore.WithMaxConns(cfg.PostgresMaxConns))
	}
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Migrations open the ClickHouse connection on the target database
	var chConn *chstore.Conn
	if cfg.RunMigrations {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		chConn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		logger.Println("Migrations applied")
	} else {
		chConn, err = chstore.NewConn(ctx, cfg.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return &stores{
		runStore:   pgstore.NewForecastRunStore(pool),
		pointStore: chstore.NewHorizonPointStore(chConn),
		backend:    "postgres",
		checks:     map[string]func(context.Context) error{
			"postgres":   pool.Ping,
			"clickhouse": chConn.Ping,
		},
	}, cleanup, nil
}
