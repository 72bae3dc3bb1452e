// Package main implements the entry point for the sensorstore service: the
// measurement storage, caching, and aggregation core of the telemetry
// platform. It wires the MongoDB stores, the cache layer, the broker
// ingestion path, and the metrics endpoint, then runs until signalled.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/c360/sensorstore/aggregate"
	"github.com/c360/sensorstore/cache"
	"github.com/c360/sensorstore/config"
	"github.com/c360/sensorstore/events"
	"github.com/c360/sensorstore/health"
	"github.com/c360/sensorstore/ingest"
	"github.com/c360/sensorstore/metric"
	"github.com/c360/sensorstore/pkg/objectid"
	"github.com/c360/sensorstore/pkg/retry"
	"github.com/c360/sensorstore/storage/cachedstore"
	"github.com/c360/sensorstore/storage/mongostore"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "sensorstore"
)

const shutdownTimeout = 10 * time.Second

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	slog.Info("Starting sensorstore", "version", Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Backends come up in arbitrary order under an orchestrator; retry the
	// initial connections rather than crash-looping.
	db, err := connectMongo(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to mongodb: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := db.Client().Disconnect(disconnectCtx); err != nil {
			logger.Warn("mongodb disconnect failed", "error", err)
		}
	}()

	strategy, err := setupCache(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("connect cache: %w", err)
	}

	registry := metric.NewRegistry()
	metrics := registry.CoreMetrics()

	conn, err := retry.DoWithResult(ctx, retry.Startup(), func() (*nats.Conn, error) {
		return ingest.Connect(cfg.NATSURL, appName, logger, metrics)
	})
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	defer conn.Close()

	// Metrics and health endpoint
	monitor := health.NewMonitor(logger, 2*time.Second)
	registerHealthChecks(monitor, db, strategy, conn)

	metricsServer := metric.NewServer(cfg.MetricsAddr, cfg.MetricsPath, registry, logger)
	metricsServer.Handle("/healthz", monitor.Handler())
	if err := metricsServer.Start(); err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err)
		}
	}()

	dispatcher := events.NewDispatcher(logger)
	dispatcher.Register(events.NewNATSPublisher(conn))

	// Stores and services
	gen := objectid.NewDefaultGenerator()
	store := mongostore.NewMeasurementStore(db, gen, logger, mongostore.WithNotifier(dispatcher))
	cached := cachedstore.New(store, strategy, logger,
		cachedstore.WithMetrics(metrics),
		cachedstore.WithTimeouts(cfg.CacheTimeoutMinutes, cfg.CacheShortTimeoutMinutes))

	stats := mongostore.NewStatisticsStore(db, gen, logger)
	agg := aggregate.New(stats, logger, aggregate.WithMetrics(metrics))

	service := ingest.New(cached, mongostore.NewSensorResolver(db), agg, logger,
		ingest.WithMetrics(metrics))
	subscriber := ingest.NewSubscriber(conn, service, logger,
		ingest.WithSubject(cfg.IngestSubject),
		ingest.WithQueue(cfg.IngestQueue))

	if err := subscriber.Start(ctx); err != nil {
		return fmt.Errorf("start ingestion: %w", err)
	}

	slog.Info("sensorstore running",
		"database", cfg.MongoDatabase,
		"subject", cfg.IngestSubject,
		"metrics", cfg.MetricsAddr)

	<-ctx.Done()
	slog.Info("Shutting down")

	if err := subscriber.Stop(); err != nil {
		logger.Warn("ingestion drain failed", "error", err)
	}
	return nil
}

// connectMongo dials MongoDB with startup retries and bootstraps the indexes.
func connectMongo(ctx context.Context, cfg *config.Config) (*mongo.Database, error) {
	db, err := retry.DoWithResult(ctx, retry.Startup(), func() (*mongo.Database, error) {
		connectCtx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout)
		defer cancel()
		return mongostore.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	})
	if err != nil {
		return nil, err
	}

	indexCtx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout)
	defer cancel()
	if err := mongostore.EnsureIndexes(indexCtx, db); err != nil {
		return nil, err
	}
	return db, nil
}

// setupCache selects Redis when configured and the in-process strategy
// otherwise.
func setupCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Strategy, error) {
	if cfg.RedisAddr == "" {
		logger.Info("no redis configured, using in-process cache")
		return cache.NewMemoryStrategy(ctx), nil
	}

	strategy, err := retry.DoWithResult(ctx, retry.Startup(), func() (*cache.RedisStrategy, error) {
		return cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	})
	if err != nil {
		return nil, err
	}
	logger.Info("redis cache connected", "addr", cfg.RedisAddr)
	return strategy, nil
}

// registerHealthChecks wires a liveness checker per backend. The cache is
// never fatal: a dead Redis degrades the service, it does not take it down.
func registerHealthChecks(monitor *health.Monitor, db *mongo.Database, strategy cache.Strategy, conn *nats.Conn) {
	monitor.Register(health.CheckerFunc{
		ComponentName: "mongodb",
		Fn: func(ctx context.Context) health.Status {
			if err := db.Client().Ping(ctx, nil); err != nil {
				return health.Unhealthy("mongodb", err.Error())
			}
			return health.Healthy("mongodb")
		},
	})

	if redisStrategy, ok := strategy.(*cache.RedisStrategy); ok {
		monitor.Register(health.CheckerFunc{
			ComponentName: "cache",
			Fn: func(ctx context.Context) health.Status {
				if err := redisStrategy.Ping(ctx); err != nil {
					return health.Degraded("cache", err.Error())
				}
				return health.Healthy("cache")
			},
		})
	}

	monitor.Register(health.CheckerFunc{
		ComponentName: "nats",
		Fn: func(context.Context) health.Status {
			if !conn.IsConnected() {
				return health.Unhealthy("nats", "not connected")
			}
			return health.Healthy("nats")
		},
	})
}
