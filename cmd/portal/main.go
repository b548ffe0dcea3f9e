package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meridian-hq/meridian-portal/internal/app"
	"github.com/meridian-hq/meridian-portal/internal/auth"
	"github.com/meridian-hq/meridian-portal/internal/backend"
	"github.com/meridian-hq/meridian-portal/internal/dashboard"
	"github.com/meridian-hq/meridian-portal/internal/guard"
	"github.com/meridian-hq/meridian-portal/internal/platform/cache"
	"github.com/meridian-hq/meridian-portal/internal/roles"
	"github.com/meridian-hq/meridian-portal/internal/settings"
	"github.com/meridian-hq/meridian-portal/internal/shared"
	"github.com/meridian-hq/meridian-portal/internal/view"
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

	sessionManager := shared.NewSessionManager(redisClient, "portal_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	client := backend.NewClient(cfg.BackendBaseURL).WithTimeout(cfg.BackendTimeout)
	guardMiddleware := guard.Middleware{Users: client, Logger: logger}

	authHandler := auth.NewHandler(logger, client, templates, sessionManager, csrfManager)
	dashboardHandler := dashboard.NewHandler(logger, client, templates, csrfManager, guardMiddleware)
	rolesHandler := roles.NewHandler(logger, client, templates, csrfManager, guardMiddleware)
	settingsHandler := settings.NewHandler(logger, templates, csrfManager, guardMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		DashboardHandler: dashboardHandler,
		RolesHandler:     rolesHandler,
		SettingsHandler:  settingsHandler,
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
