package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/internal/api/cache"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/internal/api/handler"
	apimw "github.com/Adithya-Monish-Kumar-K/mp-nominations-api/internal/api/middleware"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/internal/api/router"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/internal/events"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/redis"
)

const loadTimeout = 2 * time.Minute

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging)
	slog.Info("starting mp api",
		"port", cfg.Server.Port,
		"dataset_source", cfg.Dataset.Source,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	shutdownMetrics := metrics.StartServer(cfg.Metrics)

	// A failed load is logged and the API keeps serving 500s, so readiness
	// reports it instead of the process exiting.
	src, err := loader.New(cfg.Dataset, cfg.Postgres)
	if err != nil {
		slog.Error("invalid dataset source", "error", err)
		os.Exit(1)
	}
	loadCtx, cancelLoad := context.WithTimeout(ctx, loadTimeout)
	ds := loader.LoadDataset(loadCtx, src, cfg.Query)
	cancelLoad()
	m.DatasetRecords.Set(float64(ds.Len()))
	if ds.Ready() {
		m.DatasetLoaded.Set(1)
	}

	var pageCache handler.PageCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled && ds.Ready() {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, page caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			pageCache = cache.New(redisClient, cfg.Redis, ds.Fingerprint())
			slog.Info("page cache enabled",
				"addr", cfg.Redis.Addr,
				"ttl", cfg.Redis.CacheTTL,
				"namespace", ds.Fingerprint(),
			)
		}
	}

	var collector *events.Collector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents)
		defer producer.Close()
		collector = events.NewCollector(producer, 0, 0, 0)
		// Stopped by Close once the server has drained, not by the signal.
		collector.Start(context.Background())
		defer collector.Close()
		slog.Info("query events enabled", "topic", cfg.Kafka.Topics.QueryEvents)
	}

	checker := health.NewChecker(2 * time.Second)
	checker.Register("dataset", func(ctx context.Context) health.ComponentHealth {
		if !ds.Ready() {
			return health.ComponentHealth{Status: health.StatusDown, Message: "MP dataset not loaded"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d records", ds.Len())}
	})
	if cfg.Redis.Enabled {
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if redisClient == nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: "not connected"}
			}
			if err := redisClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	var limiter *apimw.Limiter
	if cfg.RateLimit.Enabled {
		limiter = apimw.NewLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		go limiter.Cleanup(ctx, 5*time.Minute)
	}

	h := handler.New(ds, pageCache, collector, m, cfg.Query)
	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router.New(h, checker, router.Options{
			AllowOrigins: cfg.Server.AllowOrigins,
			Limiter:      limiter,
			Metrics:      m,
			Timeout:      cfg.Server.WriteTimeout,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown error", "error", err)
		}
	}()

	slog.Info("mp api listening", "addr", server.Addr, "dataset_state", ds.State().String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-shutdownDone

	slog.Info("mp api stopped")
}
