package app

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"dashcli/internal/cache"
	"dashcli/internal/config"
	apierrors "dashcli/internal/errors"
	"dashcli/internal/infrastructure"
	customMiddleware "dashcli/internal/middleware"
	"dashcli/internal/retry"
	"dashcli/internal/services"
	handlers "dashcli/internal/transport/http"
)

var (
	// BuildTime is set at compile time
	BuildTime = time.Now().Format(time.RFC3339)
	// BuildID is a unique identifier for this build
	BuildID = generateBuildID()
)

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(config.AppVersion))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// closer is implemented by retry stores that hold resources
type closer interface {
	Close() error
}

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	Services      *ServiceContainer
	OTelProviders *infrastructure.OTelProviders
	ErrorHandler  *apierrors.ErrorHandler

	retryStore retry.Store
	listener   net.Listener
	serveErr   chan error
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Dashboard *services.DashboardService
	Health    *services.HealthService
	Cache     *cache.ResultCache[any]
	Metrics   *infrastructure.AnalyticsMetrics
}

// NewApplication loads configuration, initializes the process logger and
// builds the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New wires an application from an explicit configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("build_id", BuildID))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		ErrorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	if err := app.initializeServices(); err != nil {
		app.closeStore()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	store, err := a.openRetryStore()
	if err != nil {
		return err
	}
	a.retryStore = store

	metrics, err := infrastructure.NewAnalyticsMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create analytics metrics: %w", err)
	}

	cacheMetrics, err := cache.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create cache metrics: %w", err)
	}
	resultCache := cache.New[any](
		cache.WithName("analytics"),
		cache.WithMaxSize(a.Config.Cache.MaxSize),
		cache.WithMetrics(cacheMetrics),
	)

	dashboard := services.NewDashboardService(services.DashboardOptions{
		Cache:      resultCache,
		RetryStore: store,
		Retry:      retry.ConfigFrom(a.Config.Retry),
		Metrics:    metrics,
		Logger:     a.Logger,
	})

	health := services.NewHealthService(config.AppVersion, BuildTime, dashboard, store, a.Logger)

	a.Services = &ServiceContainer{
		Dashboard: dashboard,
		Health:    health,
		Cache:     resultCache,
		Metrics:   metrics,
	}
	return nil
}

// openRetryStore selects the retry state backend
func (a *Application) openRetryStore() (retry.Store, error) {
	switch a.Config.Store.Driver {
	case "sqlite":
		store, err := retry.NewSQLiteStore(a.Config.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open retry store: %w", err)
		}
		a.Logger.Info("Retry state persisted in SQLite", slog.String("path", a.Config.Store.Path))
		return store, nil
	default:
		return retry.NewMemoryStore(), nil
	}
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// RequestID → Telemetry → Logger → Recoverer → RateLimit → Timeout
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.Telemetry(a.Services.Metrics))
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.ErrorHandler))
	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.ErrorHandler,
			a.Logger,
		).Handler)
	}
	r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
	r.Use(customMiddleware.SecurityHeaders)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.setupAPIRoutes(r)

	r.Method(http.MethodGet, "/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.ErrorHandler))

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	validator := customMiddleware.NewValidator(a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		datasetHandler := handlers.NewDatasetHandler(a.Services.Dashboard, validator,
			a.Config.Store.DataDir, a.Logger, a.ErrorHandler)
		r.Mount("/datasets", datasetHandler.Routes())
		r.Get("/files", datasetHandler.ListFiles)

		analyticsHandler := handlers.NewAnalyticsHandler(a.Services.Dashboard, validator, a.Logger, a.ErrorHandler)
		r.Mount("/analytics", analyticsHandler.Routes())
	})
}

// createServer creates the HTTP server
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

// Start binds the listener and serves in the background. Serve errors are
// reported on Done.
func (a *Application) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	a.listener = ln
	a.serveErr = make(chan error, 1)

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			a.serveErr <- err
		}
		close(a.serveErr)
	}()

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", ln.Addr().String()),
		slog.String("data_dir", a.Config.Store.DataDir),
		slog.String("store", a.Config.Store.Driver),
		slog.Int("cache_size", a.Config.Cache.MaxSize))
	return nil
}

// Addr returns the bound listener address, or the configured one before Start.
func (a *Application) Addr() string {
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return a.Server.Addr
}

// Done yields the serve error, if any, and is closed once serving stops.
func (a *Application) Done() <-chan error {
	return a.serveErr
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	if err := a.closeStore(); err != nil {
		errs = append(errs, fmt.Errorf("retry store close error: %w", err))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

func (a *Application) closeStore() error {
	if c, ok := a.retryStore.(closer); ok {
		return c.Close()
	}
	return nil
}

// Run starts the application and blocks until SIGINT, SIGTERM, ctx
// cancellation or a serve failure, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("Received shutdown signal")
	case serveErr = <-a.serveErr:
	}

	// Shutdown gets a fresh context; ctx is already cancelled here
	return errors.Join(serveErr, a.Stop(context.Background()))
}
