package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/jlmsdev/webCarros/internal/platform/logger"
	"go.uber.org/zap"
)

// NewServer wraps the router in an http.Server and returns a cleanup that
// shuts it down gracefully.
func NewServer(addr string, handler http.Handler, appLogger *logger.Logger) (*http.Server, func()) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	cleanup := func() {
		appLogger.Info("Shutting down HTTP server...")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			appLogger.Error("HTTP server shutdown failed", zap.Error(err))
			return
		}
		appLogger.Info("HTTP server stopped")
	}
	return srv, cleanup
}
