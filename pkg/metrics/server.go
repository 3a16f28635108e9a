package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// NewServeMux exposes the scrape endpoint at /metrics and redirects the
// root there.
func NewServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler())
	mux.Handle("GET /{$}", http.RedirectHandler("/metrics", http.StatusFound))
	return mux
}

// StartServer serves NewServeMux on port in the background and returns the
// server's Shutdown.
func StartServer(port int) (shutdown func(context.Context) error) {
	logger := slog.Default().With("component", "metrics-server")
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           NewServeMux(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	return server.Shutdown
}
