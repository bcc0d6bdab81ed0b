package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/novelforge/novelforge/internal/app"
	"github.com/novelforge/novelforge/internal/chapters"
	"github.com/novelforge/novelforge/internal/characters"
	"github.com/novelforge/novelforge/internal/dashboard"
	"github.com/novelforge/novelforge/internal/generation"
	jobmetrics "github.com/novelforge/novelforge/internal/jobs"
	"github.com/novelforge/novelforge/internal/novels"
	"github.com/novelforge/novelforge/internal/observability"
	"github.com/novelforge/novelforge/internal/platform/cache"
	"github.com/novelforge/novelforge/internal/platform/db"
	"github.com/novelforge/novelforge/internal/shared"
	"github.com/novelforge/novelforge/internal/worldnotes"
	"github.com/novelforge/novelforge/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	dashboardService := dashboard.NewService(dashboard.NewRepository(pool), dashboard.NewCache(redisClient, cfg.DashboardTTL), logger)
	changes := shared.ChangeRecorder{Audit: shared.NewAuditLogger(pool), Stats: dashboardService, Logger: logger}

	novelService := novels.NewService(novels.NewRepository(pool), changes)
	chapterService := chapters.NewService(chapters.NewRepository(pool), changes, metrics)
	characterService := characters.NewService(characters.NewRepository(pool), changes)
	worldNoteService := worldnotes.NewService(worldnotes.NewRepository(pool), changes)

	generateJob := &generation.Job{
		Sources: generation.Sources{
			Novels:     novelService,
			Chapters:   chapterService,
			Characters: characterService,
			Notes:      worldNoteService,
		},
		Completer: generation.NewChatClient(generation.ChatConfig{
			BaseURL: cfg.LLMBaseURL,
			APIKey:  cfg.LLMAPIKey,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout,
		}),
		Drafts:  chapterService,
		Metrics: jobMetrics,
		Logger:  logger,
	}

	idempotencyStore := shared.NewIdempotencyStore(pool)
	cleanup := func(ctx context.Context, _ *asynq.Task) error {
		tracker := jobMetrics.Track(jobs.TaskIdempotencyCleanup)
		return tracker.End(idempotencyStore.Cleanup(ctx, cfg.IdempotencyMaxAge))
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cfg.Redis().AsynqOpt(),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskChapterGenerate, Handler: generateJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanup},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "17 * * * *", Task: jobs.NewIdempotencyCleanupTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker started", slog.Int("concurrency", cfg.WorkerConcurrency), slog.String("model", cfg.LLMModel))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
