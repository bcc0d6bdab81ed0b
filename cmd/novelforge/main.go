package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/novelforge/novelforge/internal/app"
	"github.com/novelforge/novelforge/internal/audit"
	audithttp "github.com/novelforge/novelforge/internal/audit/http"
	"github.com/novelforge/novelforge/internal/auth"
	"github.com/novelforge/novelforge/internal/chapters"
	"github.com/novelforge/novelforge/internal/characters"
	"github.com/novelforge/novelforge/internal/dashboard"
	"github.com/novelforge/novelforge/internal/generation"
	"github.com/novelforge/novelforge/internal/novels"
	"github.com/novelforge/novelforge/internal/observability"
	"github.com/novelforge/novelforge/internal/platform/cache"
	"github.com/novelforge/novelforge/internal/platform/db"
	"github.com/novelforge/novelforge/internal/shared"
	"github.com/novelforge/novelforge/internal/token"
	"github.com/novelforge/novelforge/internal/users"
	"github.com/novelforge/novelforge/internal/worldnotes"
	"github.com/novelforge/novelforge/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Warn("redis unavailable, dashboard cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	codec, err := token.NewCodec(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		logger.Error("token codec", slog.Any("error", err))
		os.Exit(1)
	}
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	authorizer, err := auth.NewAuthorizer(auth.CodecResolver{Codec: codec})
	if err != nil {
		logger.Error("authorizer", slog.Any("error", err))
		os.Exit(1)
	}
	authMiddleware := auth.Middleware{Authorizer: authorizer, CSRF: csrfManager, Logger: logger}

	authService := auth.NewService(auth.NewRepository(dbpool), codec, csrfManager, cfg.AdminUsernames)
	authHandler := auth.NewHandler(logger, authService, cfg.IsProduction())

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	dashboardService := dashboard.NewService(dashboard.NewRepository(dbpool), dashboard.NewCache(redisClient, cfg.DashboardTTL), logger)
	changes := shared.ChangeRecorder{Audit: auditLogger, Stats: dashboardService, Logger: logger}

	novelService := novels.NewService(novels.NewRepository(dbpool), changes)
	chapterService := chapters.NewService(chapters.NewRepository(dbpool), changes, metrics)
	characterService := characters.NewService(characters.NewRepository(dbpool), changes)
	worldNoteService := worldnotes.NewService(worldnotes.NewRepository(dbpool), changes)
	usersService := users.NewService(users.NewRepository(dbpool), auditLogger)

	jobClient, err := jobs.NewClient(cfg.Redis().AsynqOpt())
	if err != nil {
		logger.Error("job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(cfg.Redis().AsynqOpt())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	generationService := generation.NewService(novelService, jobClient, inspector, idempotencyStore, changes)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Metrics:           metrics,
		Auth:              authMiddleware,
		AuthHandler:       authHandler,
		NovelHandler:      novels.NewHandler(logger, novelService),
		ChapterHandler:    chapters.NewHandler(logger, chapterService),
		CharacterHandler:  characters.NewHandler(logger, characterService),
		WorldNoteHandler:  worldnotes.NewHandler(logger, worldNoteService),
		GenerationHandler: generation.NewHandler(logger, generationService, cfg.GeneratePerHour),
		DashboardHandler:  dashboard.NewHandler(logger, dashboardService),
		UsersHandler:      users.NewHandler(logger, usersService),
		AuditHandler:      audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool))),
		JobHandler:        jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
