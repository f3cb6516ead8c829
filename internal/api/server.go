// Package api exposes the workspace manager over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clouddeck/stackd/internal/events"
	"github.com/clouddeck/stackd/internal/stack"
)

//go:generate mockgen -destination=mocks/mock_stacks.go -package=mocks github.com/clouddeck/stackd/internal/api StackService

// StackService defines the workspace operations the server needs.
type StackService interface {
	List() ([]string, error)
	Info(name string) (stack.Info, error)
	Save(name string, template, params any) error
	Destroy(name string) error
	Resources(name string) ([]stack.Resource, error)
	Events(name string) ([]stack.WorkspaceEvent, error)
	Outputs(name string) (map[string]any, error)
	Template(name string) (string, error)
}

// Config holds API server configuration.
type Config struct {
	Listen string
	// APIKey is the bearer token required by all /v1 endpoints.
	APIKey string
}

// Server represents the HTTP API server.
type Server struct {
	config    Config
	stacks    StackService
	hub       *events.Hub
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a new API server instance. hub may be nil; the transition
// feed endpoint then returns empty snapshots.
func New(config Config, stacks StackService, hub *events.Hub, logger *slog.Logger) *Server {
	return &Server{
		config:    config,
		stacks:    stacks,
		hub:       hub,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start starts the HTTP server (blocking until ctx is cancelled).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Unauthenticated ops endpoint.
	r.Get("/healthz", s.handleHealthz)

	// Protected API.
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Route("/v1", func(r chi.Router) {
			r.Get("/events", s.handleTransitions)
			r.Route("/workspaces", func(r chi.Router) {
				r.Get("/", s.handleList)
				r.Route("/{name}", func(r chi.Router) {
					r.Get("/", s.handleInfo)
					r.Post("/", s.handleSave)
					r.Delete("/", s.handleDestroy)
					r.Get("/resources", s.handleResources)
					r.Get("/outputs", s.handleOutputs)
					r.Get("/events", s.handleEvents)
					r.Get("/template", s.handleTemplate)
				})
			})
		})
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
