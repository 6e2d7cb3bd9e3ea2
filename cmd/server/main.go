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

	"github.com/docsearch-io/docsearch/internal/analytics"
	"github.com/docsearch-io/docsearch/internal/auth/apikey"
	"github.com/docsearch-io/docsearch/internal/auth/ratelimit"
	"github.com/docsearch-io/docsearch/internal/searcher"
	"github.com/docsearch-io/docsearch/internal/server"
	"github.com/docsearch-io/docsearch/internal/server/cache"
	"github.com/docsearch-io/docsearch/internal/storage"
	"github.com/docsearch-io/docsearch/pkg/config"
	dserrors "github.com/docsearch-io/docsearch/pkg/errors"
	"github.com/docsearch-io/docsearch/pkg/health"
	"github.com/docsearch-io/docsearch/pkg/kafka"
	"github.com/docsearch-io/docsearch/pkg/logger"
	"github.com/docsearch-io/docsearch/pkg/metrics"
	"github.com/docsearch-io/docsearch/pkg/postgres"
	pkgredis "github.com/docsearch-io/docsearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	log := slog.Default()

	store, err := storage.New(cfg.Storage.DataDir, cfg.Storage.BackupsToKeep)
	if err != nil {
		log.Error("initializing storage", "error", err)
		os.Exit(1)
	}

	ix, err := store.Load()
	if err != nil {
		if errors.Is(err, dserrors.ErrSnapshotCorrupt) {
			log.Error("snapshot and all backups are corrupt, refusing to start with data loss", "error", err)
		} else {
			log.Error("loading snapshot", "error", err)
		}
		os.Exit(1)
	}
	log.Info("index loaded",
		"documents", ix.TotalDocuments(),
		"terms", ix.TotalTerms(),
		"data_dir", cfg.Storage.DataDir,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents", ix.TotalDocuments()),
		}
	})
	checker.Register("storage", func(ctx context.Context) health.ComponentHealth {
		info := store.Info()
		status := health.StatusUp
		if !info.Exists {
			status = health.StatusDegraded
		}
		return health.ComponentHealth{Status: status, Message: fmt.Sprintf("%d backups", info.BackupCount)}
	})

	var m *metrics.Metrics
	var stopMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		m = metrics.New()
		m.IndexDocuments.Set(float64(ix.TotalDocuments()))
		m.IndexTerms.Set(float64(ix.TotalTerms()))
		stopMetrics = metrics.StartServer(cfg.Metrics.Port)
	}

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, running without query cache", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis)
			checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
				if err := redisClient.Ping(ctx); err != nil {
					return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
				}
				return health.ComponentHealth{Status: health.StatusUp}
			})
		}
	}

	var collector *analytics.Collector
	var aggregator *analytics.Aggregator
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.EventsTopic)
		defer producer.Close()

		collector = analytics.NewCollector(producer, 0)
		collector.Start(ctx)
		defer collector.Close()

		aggregator = analytics.NewAggregator(cfg.Kafka)
		go func() {
			if err := aggregator.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("analytics aggregator stopped", "error", err)
			}
		}()
		defer aggregator.Close()
	}

	var keys *apikey.Validator
	if cfg.Auth.Enabled {
		pg, err := postgres.New(cfg.Postgres)
		if err != nil {
			log.Error("auth enabled but postgres unavailable", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		keys = apikey.NewValidator(pg)
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := pg.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	if cfg.Storage.AutosaveInterval > 0 {
		store.StartAutosaveLoop(ctx, ix, cfg.Storage.AutosaveInterval, cfg.Storage.SaveRetries)
	}

	handler := server.NewHandler(server.Deps{
		Store:      ix,
		Searcher:   searcher.New(ix),
		Storage:    store,
		Cache:      queryCache,
		Collector:  collector,
		Aggregator: aggregator,
		Keys:       keys,
		Metrics:    m,
		Config:     cfg,
	})
	router := server.NewRouter(handler, checker, ratelimit.New(cfg.Auth.RateLimitWindow))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}
	if stopMetrics != nil {
		if err := stopMetrics(shutdownCtx); err != nil {
			log.Error("metrics server shutdown", "error", err)
		}
	}
	cancel()

	// Final snapshot so nothing indexed since the last save is lost.
	if err := store.Save(ix); err != nil {
		log.Error("final snapshot save failed", "error", err)
		os.Exit(1)
	}
	log.Info("final snapshot saved", "documents", ix.TotalDocuments())
}
