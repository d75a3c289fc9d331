package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"geobus/internal/health"
	"geobus/pkg/config"
	"geobus/pkg/contracts"
	"geobus/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

// inlineTimeoutPaths write bookings. Their handlers finish under the request
// deadline and report what actually happened.
var inlineTimeoutPaths = []string{"/api/book-seats", "/api/cancel-ticket"}

// ShutdownHook runs after the HTTP server has stopped accepting requests.
type ShutdownHook func(ctx context.Context) error

type Application struct {
	cfg              *config.Config
	server           *http.Server
	idempotencyStore middleware.IdempotencyStore
	rateLimiter      *middleware.ClientRateLimiter
	healthHandler    http.Handler
	appHttpHandler   http.Handler

	background    []func(ctx context.Context)
	shutdownHooks []ShutdownHook
}

func NewApplication() *Application {
	return &Application{}
}

func (a *Application) SetApp(cfg *config.Config, appHandlers ...contracts.Handler) {
	a.cfg = cfg
	a.setHealthHandler()
	a.setAppHandler(appHandlers)
	a.setAppServer()
}

// Go registers a task that runs alongside the server until shutdown.
func (a *Application) Go(task func(ctx context.Context)) {
	a.background = append(a.background, task)
}

// OnShutdown registers a hook. Hooks run in registration order.
func (a *Application) OnShutdown(hook ShutdownHook) {
	a.shutdownHooks = append(a.shutdownHooks, hook)
}

// Handler returns the complete routing tree. Used by tests.
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

func (a *Application) setHealthHandler() {
	healthRouter := httprouter.New()
	health.NewHealthHandler(a.cfg.Client, a.cfg.Log).RegisterRoutes(healthRouter)

	var healthHTTPHandler http.Handler = healthRouter
	healthHTTPHandler = middleware.RequestLogging(a.cfg.Log)(healthHTTPHandler)
	healthHTTPHandler = middleware.Recovery(a.cfg.Log)(healthHTTPHandler)
	a.healthHandler = healthHTTPHandler
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAppHandler(appHandlers []contracts.Handler) {
	appRouter := httprouter.New()
	for _, h := range appHandlers {
		h.RegisterRoutes(appRouter)
	}

	if a.cfg.Client != nil && a.cfg.Client.Redis != nil {
		a.idempotencyStore = middleware.NewRedisIdempotencyStore(a.cfg.Client.Redis, a.cfg.IdempotencyTTL)
		a.cfg.Log.Info("Idempotency keys stored in Redis")
	} else {
		a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
		a.cfg.Log.Info("Idempotency keys stored in memory")
	}
	a.rateLimiter = middleware.NewClientRateLimiter(
		a.cfg.RateLimitRequests,
		a.cfg.RateLimitWindow,
		middleware.ClientIP,
		a.cfg.Log,
	)

	var appHttpHandler http.Handler = appRouter
	appHttpHandler = middleware.Idempotency(a.idempotencyStore, a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.RequestTimeout(a.cfg.RequestTimeout, inlineTimeoutPaths...)(appHttpHandler)
	appHttpHandler = middleware.RateLimit(a.rateLimiter)(appHttpHandler)
	appHttpHandler = middleware.ContentTypeValidation(a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(appHttpHandler)
	appHttpHandler = middleware.RequestLogging(a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.Recovery(a.cfg.Log)(appHttpHandler)
	a.appHttpHandler = appHttpHandler
	a.cfg.Log.Info("Application endpoints configured with full middleware stack")
}

func (a *Application) setAppServer() {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	mux.Handle("/", a.appHttpHandler)

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

func (a *Application) Run() {
	ctx, cancelBackground := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, task := range a.background {
		wg.Add(1)
		go func(task func(ctx context.Context)) {
			defer wg.Done()
			task(ctx)
		}(task)
	}

	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			cancelBackground()
			a.cfg.Log.Fatal("HTTP server failed", "error", err)
		}

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}

	cancelBackground()
	wg.Wait()
	a.runShutdownHooks()
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Fatal("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Stopping background workers...")
	a.idempotencyStore.Stop()
	a.rateLimiter.Stop()
	a.cfg.Log.Info("Server stopped gracefully")
}

func (a *Application) runShutdownHooks() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	for _, hook := range a.shutdownHooks {
		if err := hook(ctx); err != nil {
			a.cfg.Log.Error("Shutdown hook failed", "error", err)
		}
	}
	a.cfg.Log.Info("Background workers stopped")
}
