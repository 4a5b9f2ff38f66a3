// Package server provides the HTTP API for matome.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/matome-io/matome/internal/config"
	"github.com/matome-io/matome/internal/llm"
	"github.com/matome-io/matome/internal/models"
	"github.com/matome-io/matome/internal/store"
)

// RelevanceFinder scores stored papers against research topics.
type RelevanceFinder interface {
	FindRelevant(ctx context.Context, topics []string, limit int, model string) ([]models.Paper, error)
}

// StatusChecker reports the model service's health.
type StatusChecker interface {
	CheckStatus(ctx context.Context) llm.Status
}

// Server is the HTTP server for the matome API.
type Server struct {
	scorer RelevanceFinder
	papers store.PaperStore
	llm    StatusChecker
	config *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	scorer RelevanceFinder,
	papers store.PaperStore,
	checker StatusChecker,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		scorer: scorer,
		papers: papers,
		llm:    checker,
		config: cfg,
		logger: logger,
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/search", s.handleSearch)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
