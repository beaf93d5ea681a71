// Command dataserver serves the registered entities over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bitechdev/DataProvider/pkg/cache"
	"github.com/bitechdev/DataProvider/pkg/config"
	"github.com/bitechdev/DataProvider/pkg/dbmanager"
	"github.com/bitechdev/DataProvider/pkg/errortracking"
	"github.com/bitechdev/DataProvider/pkg/eventbroker"
	"github.com/bitechdev/DataProvider/pkg/logger"
	"github.com/bitechdev/DataProvider/pkg/metrics"
	"github.com/bitechdev/DataProvider/pkg/provider"
	"github.com/bitechdev/DataProvider/pkg/server"
	"github.com/bitechdev/DataProvider/pkg/tracing"
)

func main() {
	if err := run(); err != nil {
		logger.Error("dataserver failed: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfgMgr := config.NewManager()
	if err := cfgMgr.Load(); err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cfg, err := cfgMgr.GetConfig()
	if err != nil {
		return fmt.Errorf("read configuration: %w", err)
	}

	logger.Init(cfg.Logger.Dev)
	if cfg.Logger.Path != "" {
		logger.UpdateLoggerPath(cfg.Logger.Path, cfg.Logger.Dev)
	}
	logger.Info("DataProvider server starting")

	tracker, err := errortracking.NewProviderFromConfig(cfg.ErrorTracking)
	if err != nil {
		return fmt.Errorf("init error tracking: %w", err)
	}
	logger.InitErrorTracking(tracker)
	defer func() {
		if err := logger.CloseErrorTracking(); err != nil {
			logger.Warn("Closing error tracking failed: %v", err)
		}
	}()

	shutdownTracer, err := tracing.InitTracer(tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		Endpoint:       cfg.Tracing.Endpoint,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var prom *metrics.PrometheusProvider
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheusProvider(&metrics.Config{Registerer: registry, Gatherer: registry})
		metrics.SetProvider(prom)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := dbmanager.NewConnection("default", cfg.Database)
	if err != nil {
		return err
	}
	if err := conn.Connect(ctx); err != nil {
		return err
	}
	var poolMetrics *dbmanager.PoolMetrics
	if cfg.Metrics.Enabled {
		poolMetrics = dbmanager.NewPoolMetrics(registry)
	}
	monitor := dbmanager.NewMonitor(conn, poolMetrics)
	monitor.Start()

	if version, err := conn.ServerVersion(ctx); err != nil {
		logger.Warn("Could not read the SQL Server version: %v", err)
	} else {
		logger.Info("Connected to %s", version)
	}

	db, err := conn.Native()
	if err != nil {
		return err
	}

	opts, closers, err := providerOptions(cfg, conn.Config())
	if err != nil {
		return err
	}

	router, err := buildRouter(cfg, db, prom, opts...)
	if err != nil {
		return err
	}
	handler, stopLimiter := withRateLimit(cfg.Server, router)

	srv, err := server.New(cfg.Server, handler)
	if err != nil {
		return err
	}
	router.HandleFunc("/health", srv.HealthCheckHandler())
	router.HandleFunc("/ready", srv.ReadinessHandler(map[string]server.ReadinessCheck{
		"database": conn.HealthCheck,
		"queries":  conn.Ready,
	}))

	srv.OnShutdown(func(ctx context.Context) error {
		stopLimiter()
		monitor.Stop()
		return conn.Close()
	})
	srv.OnShutdown(func(ctx context.Context) error {
		var firstErr error
		for _, c := range closers {
			if err := c(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	})
	srv.OnShutdown(shutdownTracer)

	logger.Info("Listening on %s", cfg.Server.Addr)
	return srv.Run(ctx)
}

// providerOptions builds the count cache and the event publisher from cfg.
// The returned closers release them on shutdown.
func providerOptions(cfg *config.Config, db config.DatabaseConfig) ([]provider.Option, []func() error, error) {
	opts := []provider.Option{
		provider.WithCommandTimeout(db.QueryTimeout),
		provider.WithProcedureTimeout(db.StoredProcedureTimeout),
		provider.WithSource(cfg.Events.Source),
	}
	var closers []func() error

	if cfg.Cache.Enabled {
		store, err := cache.NewProviderFromConfig(cfg.Cache)
		if err != nil {
			return nil, nil, fmt.Errorf("init count cache: %w", err)
		}
		opts = append(opts, provider.WithCountCache(store, cache.TTLOrDefault(cfg.Cache.TTL)))
		closers = append(closers, store.Close)
	}

	publisher, err := eventbroker.NewPublisherFromConfig(cfg.Events)
	if err != nil {
		return nil, nil, fmt.Errorf("init events: %w", err)
	}
	if publisher != nil {
		opts = append(opts, provider.WithEvents(publisher))
		closers = append(closers, publisher.Close)
	}

	logger.Debug("Provider options ready: cache=%v, events=%v, timeout=%v", cfg.Cache.Enabled, publisher != nil, db.QueryTimeout.Round(time.Millisecond))
	return opts, closers, nil
}
