// Package server hosts the operational HTTP surface of the cascade:
// Prometheus metrics, a health probe and a status snapshot.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"log/slog"
)

const shutdownTimeout = 10 * time.Second

// StatusFunc supplies the payload for /api/status, typically the
// engine's stats snapshot.
type StatusFunc func() any

// Server wraps the HTTP listener with graceful shutdown.
type Server struct {
	logger *slog.Logger
	http   *http.Server
}

// New constructs a server on addr. metricsHandler serves /metrics; a
// nil status disables /api/status.
func New(addr string, logger *slog.Logger, metricsHandler http.Handler, status StatusFunc) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if status != nil {
		mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(status()); err != nil {
				logger.Error("failed to encode status", "error", err)
			}
		})
	}

	return &Server{
		logger: logger,
		http: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Shutdown gracefully terminates the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server")
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Handler exposes the route mux for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }
