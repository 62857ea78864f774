package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/amaumene/deleterr/internal/api/handlers"
	"github.com/amaumene/deleterr/internal/api/middleware"
	"github.com/amaumene/deleterr/internal/config"
	"github.com/amaumene/deleterr/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	healthCacheTTL     = 30 * time.Second
	healthCheckTimeout = 10 * time.Second
)

// Dependencies are the components served over HTTP
type Dependencies struct {
	DB       *models.Database
	Events   handlers.EventProcessor
	Search   handlers.SearchRunner // nil when the search job is disabled
	Checks   map[string]handlers.Checker
	Catalogs []string
	Gatherer prometheus.Gatherer
	Version  string
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	search *handlers.SearchHandler // nil when the search job is disabled
	deps   Dependencies
	logger *logrus.Logger
}

// NewServer creates a new HTTP server. Background work started by requests stops when ctx is cancelled.
func NewServer(ctx context.Context, cfg *config.Config, deps Dependencies, logger *logrus.Logger) *Server {
	s := &Server{
		deps:   deps,
		logger: logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(ctx, mux)

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.Recover(middleware.Logging(mux, logger), logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the routed handler, for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(ctx context.Context, mux *http.ServeMux) {
	endpoints := map[string]string{
		"POST /delete": "Jellyfin deletion webhook",
		"POST /test":   "Parse a webhook payload without side effects",
		"GET /health":  "Downstream connectivity",
		"GET /status":  "Deletion history and last search runs",
		"GET /metrics": "Prometheus metrics",
	}

	// Jellyfin webhook
	mux.Handle("/delete", handlers.NewWebhookHandler(s.deps.Events, s.logger))

	// Parser debugging
	mux.Handle("/test", handlers.NewParseHandler(s.logger))

	// Health check
	mux.Handle("/health", handlers.NewHealthHandler(s.deps.Checks, healthCacheTTL, healthCheckTimeout, s.logger))

	// Status endpoint
	mux.Handle("/status", handlers.NewStatusHandler(s.deps.DB, s.deps.Catalogs, s.logger))

	// Manual search trigger
	if s.deps.Search != nil {
		s.search = handlers.NewSearchHandler(ctx, s.deps.Search, s.logger)
		mux.Handle("/search", s.search)
		endpoints["POST /search"] = "Start a missing item search"
	}

	// Metrics
	gatherer := s.deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.Handle("/", handlers.NewIndexHandler(s.deps.Version, endpoints))
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server, then waits for manually
// triggered searches. Those stop once the ctx given to NewServer is cancelled.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	err := s.server.Shutdown(shutdownCtx)

	if s.search != nil {
		s.search.Wait()
	}
	return err
}
