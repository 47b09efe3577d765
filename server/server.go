// Package server wires the HTTP router, middleware stack and lifecycle
// handling for serve mode.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dbnomics-fetchers/paj-fetcher/config"
	"github.com/dbnomics-fetchers/paj-fetcher/handlers"
	"github.com/dbnomics-fetchers/paj-fetcher/interfaces"
	"github.com/dbnomics-fetchers/paj-fetcher/logging"
	"github.com/dbnomics-fetchers/paj-fetcher/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router chi.Router
	store  interfaces.DataStore
	config *config.Config
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, store interfaces.DataStore) *Server {
	router := chi.NewRouter()

	server := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         cfg.Address + ":" + cfg.Port,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router: router,
		store:  store,
		config: cfg,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logging.Middleware)
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Middleware)
	s.router.Use(rateLimitHandler)
}

func (s *Server) setupRoutes() {
	h := handlers.New(s.store)

	s.router.Get("/provider", h.Provider)
	s.router.Get("/datasets", h.Datasets)
	s.router.Get("/datasets/{code}", h.Dataset)
	s.router.Get("/datasets/{code}/series", h.DatasetSeries)
	s.router.Get("/datasets/{code}/series/{seriesCode}", h.SingleSeries)
	s.router.Get("/health", h.Health)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Router exposes the configured router, mostly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the server
func (s *Server) Start() error {
	logging.Info(fmt.Sprintf("Starting server at: %s:%s", s.config.Address, s.config.Port))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}
