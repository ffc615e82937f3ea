// Package main is the entrypoint for the newscope API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newscope/newscope/internal/analytics"
	"github.com/newscope/newscope/internal/api"
	"github.com/newscope/newscope/internal/api/handler"
	mw "github.com/newscope/newscope/internal/api/middleware"
	"github.com/newscope/newscope/internal/cache"
	"github.com/newscope/newscope/internal/classifier"
	"github.com/newscope/newscope/internal/config"
	"github.com/newscope/newscope/internal/evaluate"
	"github.com/newscope/newscope/internal/predict"
)

const (
	shutdownTimeout = 30 * time.Second
	taskWorkers     = 4
	taskQueueDepth  = 256
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)
	slog.Info("config loaded",
		"backend", cfg.Classifier.Backend, "model_version", cfg.Classifier.ModelVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Construct the classifier — the one dependency that must exist
	clf, err := classifier.New(ctx, cfg.Classifier)
	if err != nil {
		return fmt.Errorf("create classifier: %w", err)
	}
	slog.Info("classifier ready", "model", clf.Name(), "version", clf.Version())

	// 3. Connect the cache; a failed connect degrades, never aborts
	redisCache, err := cache.NewRedisCache(cfg.Cache)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()
	if !redisCache.Connect(ctx) {
		slog.Warn("starting without cache")
	}

	// 4. Connect analytics; same degradation contract
	pgLogger := analytics.NewPostgresLogger(cfg.Database)
	defer pgLogger.Close()
	if !pgLogger.Connect(ctx) {
		slog.Warn("starting without analytics")
	}

	// 5. Background queue for fire-and-forget writes
	tasks := predict.NewTasks(taskWorkers, taskQueueDepth)

	// 6. Orchestrator and evaluator
	svc := predict.NewService(clf, redisCache, pgLogger, tasks)
	runner := evaluate.NewRunner(clf)

	// 7. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(cfg.Auth.APIKey),
		RateLimit: mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMin),

		HealthHandler:         handler.NewHealthHandler(),
		ReadinessHandler:      handler.NewReadinessHandler(clf, redisCache, pgLogger),
		DetailedHealthHandler: handler.NewDetailedHealthHandler(redisCache, pgLogger, tasks),
		InfoHandler:           handler.NewInfoHandler(clf, redisCache, cfg.Auth.APIKey != ""),
		PredictHandler:        handler.NewPredictHandler(svc),
		BatchHandler:          handler.NewBatchHandler(svc, runner),
		BatchFromFileHandler:  handler.NewBatchFromFileHandler(runner, cfg.Server.BatchOutputDir),
		StatsHandler:          handler.NewStatsHandler(pgLogger),
		LowConfidenceHandler:  handler.NewLowConfidenceHandler(pgLogger),
		TopicAccuracyHandler:  handler.NewTopicAccuracyHandler(pgLogger),
		CacheClearHandler:     handler.NewCacheClearHandler(redisCache),
	}
	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Let queued cache and analytics writes finish before exiting.
	tasks.Shutdown(shutdownCtx)

	slog.Info("server stopped gracefully")
	return nil
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
