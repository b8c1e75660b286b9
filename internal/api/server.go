// Package api serves the diagnostic HTTP surface: a read-only snapshot of
// router state and a Server-Sent-Events stream of order transitions, for
// operators watching a `mode: diagnostic` run. Grounded on the teacher's
// internal/api dashboard server (http.Server + mux + handlers split),
// narrowed from its websocket hub to a simpler SSE broadcaster since this
// surface has no client-to-server messages to carry.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"venueexec/internal/router"
)

// SnapshotProvider supplies the read-only state served at /status.
type SnapshotProvider interface {
	Snapshot() router.Snapshot
}

// Server runs the diagnostic HTTP surface.
type Server struct {
	provider    SnapshotProvider
	broadcaster *Broadcaster
	httpServer  *http.Server
	logger      *slog.Logger
}

// NewServer builds a diagnostic server on port listening for provider's
// snapshots and broadcaster's events. When reg is non-nil, a
// Prometheus-format /metrics endpoint serves exactly that registry, so
// /metrics reports the same counters the engine actually incremented.
func NewServer(port int, provider SnapshotProvider, broadcaster *Broadcaster, reg *prometheus.Registry, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	h := &handlers{provider: provider, broadcaster: broadcaster, logger: logger}

	mux.HandleFunc("/status", h.handleStatus)
	mux.HandleFunc("/stream", h.handleStream)
	if reg != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // /stream holds the connection open indefinitely
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		provider:    provider,
		broadcaster: broadcaster,
		httpServer:  httpServer,
		logger:      logger.With("component", "diagnostic-api"),
	}
}

// Start blocks serving HTTP until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("diagnostic server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("diagnostic server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
