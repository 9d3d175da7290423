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

	"github.com/humpahadi/humpahadi/internal/app"
	"github.com/humpahadi/humpahadi/internal/auth"
	"github.com/humpahadi/humpahadi/internal/content"
	"github.com/humpahadi/humpahadi/internal/observability"
	"github.com/humpahadi/humpahadi/internal/platform/cache"
	"github.com/humpahadi/humpahadi/internal/platform/db"
	"github.com/humpahadi/humpahadi/internal/rbac"
	"github.com/humpahadi/humpahadi/internal/roles"
	"github.com/humpahadi/humpahadi/internal/shared"
	"github.com/humpahadi/humpahadi/internal/users"
	"github.com/humpahadi/humpahadi/internal/view"
	"github.com/humpahadi/humpahadi/jobs"
)

const sessionCookie = "hp_session"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.DBOptions("humpahadi"))
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("load templates", slog.Any("error", err))
		os.Exit(1)
	}

	sessionManager := shared.NewSessionManager(redisClient, sessionCookie, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)

	redisOpts, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("parse redis address", slog.Any("error", err))
		os.Exit(1)
	}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("job inspector close", slog.Any("error", err))
		}
	}()

	rbacService := rbac.NewService(rbac.NewRepository(pool), rbac.NewCache(redisClient, cfg.RBACCacheTTL), logger)
	guard, err := rbac.NewGuard(rbac.GuardConfig{
		Sections: rbac.DefaultSections,
		Strict:   !cfg.IsProduction(),
		Logger:   logger,
	})
	if err != nil {
		logger.Error("init route guard", slog.Any("error", err))
		os.Exit(1)
	}
	loader := &rbac.SessionSnapshotLoader{
		Principals: rbacService,
		Timeout:    cfg.RBACLookupTimeout,
		Logger:     logger,
	}
	if verifier := auth.NewTokenVerifier(cfg.JWTSecret, cfg.JWTAudience); verifier.Enabled() {
		loader.Tokens = verifier
	}
	rbacMiddleware := rbac.Middleware{
		Guard:     guard,
		Loader:    loader,
		Templates: templates,
		Audit:     jobClient,
		Metrics:   metrics,
		Logger:    logger,
	}

	authService := auth.NewService(auth.NewRepository(pool), jobClient, logger)
	contentService := content.NewService(content.NewRepository(pool), logger)
	usersService := users.NewService(rbacService, auditLogger, logger)
	rolesService := roles.NewService(roles.NewRepository(pool), rbac.DefaultSections)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    auth.NewHandler(logger, authService, templates, sessionManager, csrfManager),
		ContentHandler: content.NewHandler(logger, contentService, templates, csrfManager),
		ContentAdmin:   content.NewAdminHandler(logger, contentService, templates, csrfManager, rbac.DefaultSections),
		UsersHandler:   users.NewHandler(logger, usersService, templates, csrfManager),
		RolesHandler:   roles.NewHandler(logger, rolesService, templates, csrfManager),
		AccessHandler:  rbac.NewHandler(logger, guard, loader),
		JobHandler:     jobs.NewHandler(inspector, logger),
		RBACMiddleware: rbacMiddleware,
		Metrics:        metrics,
		BearerAuth:     loader.Tokens != nil,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
