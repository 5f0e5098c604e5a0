package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/temcen/copyink/internal/config"
	"github.com/temcen/copyink/internal/database"
	"github.com/temcen/copyink/internal/handlers"
	"github.com/temcen/copyink/internal/middleware"
	"github.com/temcen/copyink/internal/services"
)

type App struct {
	config   *config.Config
	logger   *logrus.Logger
	db       *database.Database
	registry *prometheus.Registry
	services *services.Services
	handlers *handlers.Handlers
	router   *gin.Engine
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		config:   cfg,
		logger:   setupLogger(cfg),
		registry: prometheus.NewRegistry(),
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Initialize store bindings
	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	// Initialize services
	services, err := services.New(ctx, cfg, app.logger, db, app.registry)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = services

	// Initialize handlers
	app.handlers = handlers.New(app.logger, services)

	// Setup router
	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Logger() *logrus.Logger {
	return a.logger
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if a.services.MessageBus != nil {
		if err := a.services.MessageBus.Close(); err != nil {
			a.logger.WithError(err).Error("Error closing usage publisher")
		}
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	a.router = newRouter(a.logger, a.config, a.handlers, a.services.Auth, a.registry)
}

// newRouter mounts every route. CORS runs globally so preflight requests
// are answered before authentication.
func newRouter(logger *logrus.Logger, cfg *config.Config, h *handlers.Handlers, verifier services.TokenVerifier, registry *prometheus.Registry) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg.Security.CORS))

	// Health check endpoints (no auth required)
	router.GET("/health", h.Health.Check)
	router.GET("/health/live", h.Health.Live)

	// Prometheus metrics endpoint (no auth required)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		authed := api.Group("")
		authed.Use(middleware.Auth(verifier, logger))
		{
			authed.POST("/hooks", h.Generation.Hooks)
			authed.POST("/ctas", h.Generation.CTAs)
			authed.POST("/hashtags", h.Generation.Hashtags)
			authed.POST("/captions", h.Generation.Captions)
			authed.POST("/replies", h.Generation.Replies)
			authed.GET("/me", h.User.Me)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AdminToken(cfg.Auth.AdminToken, logger))
		{
			admin.PUT("/users/:userId/plan", h.Admin.SetPlan)
		}
	}

	return router
}
