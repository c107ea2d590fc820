// cmd/query-router/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"query-router/internal/api"
	"query-router/internal/app"
	"query-router/internal/common/camunda"
	"query-router/internal/common/config"
	"query-router/internal/common/database"
	"query-router/internal/common/logger"
	"query-router/internal/common/metrics"
	"query-router/internal/common/observability"
	"query-router/internal/pipeline"
	"query-router/internal/pipeline/snapshot"
	ruq "query-router/internal/workers/query/route-user-query"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting query router",
		zap.String("version", cfg.App.Version),
		zap.String("source", cfg.Router.Source),
		zap.String("ruleSet", cfg.Router.RuleSet),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	checks := map[string]api.ReadinessCheck{}

	// --- PostgreSQL (only for the postgres config source) ---
	var pg *database.PostgresClient
	if cfg.Router.Source == config.SourcePostgres {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		checks["postgres"] = pg.Ping
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Routing snapshot ---
	loader, err := app.NewLoader(cfg.Router, pg)
	if err != nil {
		zapLog.Fatal("invalid router configuration", zap.Error(err))
	}
	store := snapshot.NewStore(loader, log)
	store.OnReload(func(snap *snapshot.Snapshot, err error, _ time.Duration) {
		var loadedAt time.Time
		if snap != nil {
			loadedAt = snap.LoadedAt
		}
		metrics.ObserveReload(loadedAt, err)
	})
	if _, err := store.Reload(ctx); err != nil {
		zapLog.Fatal("initial snapshot load failed", zap.Error(err))
	}

	if cfg.Router.Source == config.SourceFile && cfg.Router.Watch {
		w, err := snapshot.NewWatcher(cfg.Router.ConfigDir, store, config.GetDuration(cfg.Router.WatchDebounce), log)
		if err != nil {
			zapLog.Warn("config watcher disabled", zap.Error(err))
		} else {
			go w.Run(ctx)
			defer w.Close()
		}
	}

	if cfg.Router.ReloadSchedule != "" {
		scheduler, err := app.ScheduleReloads(ctx, store, cfg.Router.ReloadSchedule, log)
		if err != nil {
			zapLog.Fatal("reload scheduler failed", zap.Error(err))
		}
		defer scheduler.Stop()
	}

	classifier, err := app.LoadClassifier(cfg.Router.ClassifierModel)
	if err != nil {
		zapLog.Fatal("classifier model load failed", zap.Error(err))
	}

	p := pipeline.New(store,
		pipeline.WithLogger(log),
		pipeline.WithClassifier(classifier),
		pipeline.WithDiagnostics(cfg.Router.IncludeDiagnostics),
		pipeline.WithObserver(pipeline.MetricsObserver),
	)

	// --- Redis (optional result cache for the worker) ---
	var cache *database.RedisClient
	if cfg.Database.Redis.Address != "" {
		err = retryWithBackoff(func() error {
			var err error
			cache, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return cache.Ping(ctx)
		}, 10, time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unavailable, worker cache disabled", zap.Error(err))
			cache = nil
		} else {
			defer cache.Close()
			checks["redis"] = cache.Ping
		}
	}

	// --- Zeebe worker ---
	var zeebe *camunda.Client
	var routeWorker *camunda.Worker
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.Connect(ctx, cfg.Camunda)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		checks["zeebe"] = zeebe.HealthCheck
		zapLog.Info("Zeebe client connected successfully")

		wcfg := config.GetWorkerConfig(cfg, ruq.TaskType)
		handler := ruq.NewHandler(ruq.LoadConfig(wcfg), p, cache, obs, log)
		routeWorker = camunda.StartWorker(zeebe.Raw(), ruq.TaskType, wcfg, handler.Handle, log)
	}

	// --- HTTP API ---
	server := api.NewServer(p, store, log, api.Options{
		AdminToken: cfg.Server.AdminToken,
		RateLimit:  cfg.Server.RateLimit,
		RateBurst:  cfg.Server.RateBurst,
		Checks:     checks,
	})
	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Signals: SIGHUP reloads, SIGINT/SIGTERM shut down ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigCh {
		if sig != syscall.SIGHUP {
			break
		}
		zapLog.Info("SIGHUP received, reloading snapshot")
		if _, err := store.Reload(ctx); err != nil {
			zapLog.Error("snapshot reload failed", zap.Error(err))
		}
	}

	zapLog.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	routeWorker.Stop()
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	stop()

	zapLog.Info("Query router stopped gracefully")
}
