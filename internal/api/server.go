//
//
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/lng-monitor/relay/internal/catalog"
	"github.com/lng-monitor/relay/internal/config"
)

// Server represents the HTTP API server.
type Server struct {
	httpServer   *http.Server
	hub          HubPort
	catalog      *catalog.Catalog
	history      HistoryPort
	historyLimit int
	metrics      MetricsPort
	config       config.ServerConfig
	startTime    time.Time
	now          func() time.Time

	routerOnce sync.Once
	router     *mux.Router
}

// NewServer creates a new API server.
func NewServer(hub HubPort, cat *catalog.Catalog, cfg config.ServerConfig) *Server {
	return &Server{
		hub:       hub,
		catalog:   cat,
		config:    cfg,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// SetHistory enables the history endpoints. limit caps the number of
// snapshots one query returns.
func (s *Server) SetHistory(h HistoryPort, limit int) {
	s.history = h
	s.historyLimit = limit
}

// SetMetrics enables request instrumentation and the /metrics endpoint.
func (s *Server) SetMetrics(m MetricsPort) {
	s.metrics = m
}

// Handler returns the router. Routes are registered on first use.
func (s *Server) Handler() http.Handler {
	s.routerOnce.Do(func() {
		s.router = mux.NewRouter()
		s.RegisterRoutes(s.router)
	})
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	// Start server
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server. WebSocket connections are hijacked
// and end when the hub stops.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}

// GetServer returns the underlying HTTP server for testing.
func (s *Server) GetServer() *http.Server {
	return s.httpServer
}
