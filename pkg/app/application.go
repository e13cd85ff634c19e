package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"banya/pkg/config"
	"banya/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

// Handler is what every domain handler exposes to the application shell.
type Handler interface {
	RegisterRoutes(router *httprouter.Router)
}

type Application struct {
	cfg         *config.Config
	server      *http.Server
	rateLimiter *middleware.CallerRateLimiter
}

func NewApplication() *Application {
	return &Application{}
}

func (a *Application) SetApp(cfg *config.Config, appHandler Handler) {
	a.cfg = cfg
	a.setAppHandler(appHandler)
}

func (a *Application) setAppHandler(appHandler Handler) {
	router := httprouter.New()
	appHandler.RegisterRoutes(router)

	a.rateLimiter = middleware.NewCallerRateLimiter(
		a.cfg.RateLimitRequests,
		a.cfg.RateLimitWindow,
		a.cfg.Log,
	)

	var httpHandler http.Handler = router
	httpHandler = middleware.RequestTimeout(a.cfg.RequestTimeout)(httpHandler)
	httpHandler = middleware.CallerRateLimit(a.rateLimiter)(httpHandler)
	httpHandler = middleware.ContentTypeValidation(a.cfg.Log)(httpHandler)
	httpHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(httpHandler)
	httpHandler = middleware.RequestLogging(a.cfg.Log)(httpHandler)
	httpHandler = middleware.Recovery(a.cfg.Log)(httpHandler)

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		a.cfg.Log.Fatal("HTTP server failed", "error", err)

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	a.rateLimiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Fatal("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Server stopped gracefully")
}
