package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"licensor/internal/config"
	"licensor/internal/infrastructure"
	"licensor/internal/license"
	customMiddleware "licensor/internal/middleware"
	"licensor/internal/services"
	"licensor/internal/store"
	handlers "licensor/internal/transport/http"
	ws "licensor/internal/websocket"
	"licensor/pkg/contracts"
	"licensor/pkg/contracts/domain"
)

const (
	VERSION = contracts.Version
	AppName = "Licensor - License Validation & Allocation Engine"
)

// Application represents the main application container
type Application struct {
	Config           *config.Config
	Router           *chi.Mux
	Server           *http.Server
	Store            *store.Store
	LicenseManager   *license.Manager
	WebSocketHub     *ws.Hub
	LicenseService   services.LicenseService
	AnalyticsService services.AnalyticsService
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders
}

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.Int("port", cfg.Server.Port))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	st, err := store.Open(a.Config.Paths.DataDir, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open record store: %w", err)
	}
	a.Store = st

	hub := ws.NewHub(a.Logger)
	hub.Start()
	a.WebSocketHub = hub

	metrics, err := infrastructure.NewValidationMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create validation metrics: %w", err)
	}

	a.LicenseManager = license.NewManager(st, license.Options{
		KeyPrefix: a.Config.Licensing.KeyPrefix,
		Logger:    a.Logger,
		Publisher: hub,
		Metrics:   metrics,
	})

	ctx := context.Background()
	if err := a.LicenseManager.SeedProducts(ctx, defaultProducts()); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	a.LicenseService = services.NewLicenseService(
		a.LicenseManager,
		a.Logger,
		a.Config.Licensing.DefaultMaxIPs,
		a.Config.Licensing.DefaultMaxHWIDs,
	)
	a.AnalyticsService = services.NewAnalyticsService(a.LicenseManager, a.Logger)

	return nil
}

// defaultProducts is the seed written on first start so issuance has a
// valid product reference out of the box.
func defaultProducts() []domain.Product {
	return []domain.Product{
		{ID: "default", Name: "Default Product"},
	}
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)

	// WebSocket route stays outside the JSON middleware group; wrapping the
	// ResponseWriter breaks the upgrade. The event stream is part of the
	// administrative surface, so it carries the same secret check.
	if a.Config.Security.AdminAPIEnabled {
		wsHandler := handlers.NewWSHandler(a.WebSocketHub, a.Config.Security.AllowedOrigins, a.Logger)
		r.With(customMiddleware.AdminAuth(a.Config.Security.AdminSecret, a.Logger)).
			Get("/ws/events", wsHandler.Events)
	}

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(render.SetContentType(render.ContentTypeJSON))

		healthHandler := handlers.NewHealthHandler(a.Store, VERSION, a.Logger)
		r.Get("/healthz", healthHandler.Health)

		r.Route("/api", func(r chi.Router) {
			// Public validation endpoint, rate limited.
			r.Group(func(r chi.Router) {
				if a.Config.Security.RateLimit.Enabled {
					r.Use(customMiddleware.NewRateLimiter(
						a.Config.Security.RateLimit.RPS,
						a.Config.Security.RateLimit.Burst,
						a.Logger,
					).Handler)
				}
				validateHandler := handlers.NewValidateHandler(a.LicenseService, a.Logger)
				r.Mount("/validate", validateHandler.Routes())
			})

			// Administrative surface behind the shared secret. Disabled
			// entirely when the admin API is switched off.
			if a.Config.Security.AdminAPIEnabled {
				r.Group(func(r chi.Router) {
					r.Use(customMiddleware.AdminAuth(a.Config.Security.AdminSecret, a.Logger))

					licenseHandler := handlers.NewLicenseHandler(a.LicenseService, a.Logger)
					r.Mount("/licenses", licenseHandler.Routes())

					blacklistHandler := handlers.NewBlacklistHandler(a.LicenseService, a.Logger)
					r.Mount("/blacklist", blacklistHandler.Routes())

					productHandler := handlers.NewProductHandler(a.LicenseService, a.Logger)
					r.Mount("/products", productHandler.Routes())

					analyticsHandler := handlers.NewAnalyticsHandler(a.AnalyticsService, a.Logger)
					r.Mount("/analytics", analyticsHandler.Routes())
				})
			} else {
				a.Logger.Warn("Admin API disabled; administrative routes not registered")
			}
		})
	})

	// Prometheus metrics endpoint outside the middleware group.
	if a.OTelProviders != nil && a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// createServer builds the HTTP server from configuration.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully. A server error also tears the group down.
func (a *Application) Start(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("version", VERSION),
		slog.Int("port", a.Config.Server.Port),
		slog.String("data_dir", a.Config.Paths.DataDir),
		slog.Bool("admin_api", a.Config.Security.AdminAPIEnabled))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout+5*time.Second)
		defer cancel()
		return a.Stop(stopCtx)
	})

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		a.Logger.ErrorContext(ctx, "Error closing log file", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Start(ctx)
}
