// Package server exposes the HTTP and websocket boundary: news and cluster
// reads, gated refresh triggers, bias votes, and the realtime feed.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"duckwire/internal/config"
	"duckwire/internal/logger"
	"duckwire/internal/persistence"
	"duckwire/internal/pipeline"
	"duckwire/internal/realtime"
	"duckwire/internal/votes"
)

// Server is the HTTP boundary. Gateway and hub are optional; routes that
// need a missing dependency answer 503 instead of panicking.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	cfg        *config.Config
	pipe       *pipeline.Pipeline
	gateway    *persistence.Gateway
	voteStore  *votes.Store
	hub        *realtime.Hub
	sessions   SessionVerifier
	log        *slog.Logger
}

// New assembles the server with its middleware and routes.
func New(cfg *config.Config, pipe *pipeline.Pipeline, gateway *persistence.Gateway, voteStore *votes.Store, hub *realtime.Hub, sessions SessionVerifier) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		cfg:       cfg,
		pipe:      pipe,
		gateway:   gateway,
		voteStore: voteStore,
		hub:       hub,
		sessions:  sessions,
		log:       logger.Get(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  config.ParseDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.ParseDuration(cfg.Server.WriteTimeout, 30*time.Second),
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.cfg.Server.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.Server.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/status", s.handleStatus)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/news", s.handleNews)
		r.Route("/clusters", func(r chi.Router) {
			r.Get("/", s.handleClusters)
			r.Get("/{id}", s.handleClusterDetail)
		})
		r.Route("/bias-votes", func(r chi.Router) {
			r.Get("/", s.handleGetBiasVotes)
			r.Post("/", s.handlePostBiasVote)
		})
	})

	if s.hub != nil {
		s.router.Get("/ws", s.hub.ServeHTTP)
	}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.log.Info("starting HTTP server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Router returns the chi router, useful for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
