// Package server is the HTTP surface: the chat endpoint plus the read-only
// admin browse endpoints, behind the standard middleware chain.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/twinhealth/chat-triage/internal/pipeline"
	"github.com/twinhealth/chat-triage/internal/storage"
)

// Server hosts the router and its dependencies.
type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
}

// New builds the router with the full middleware chain and routes.
func New(port int, logger *slog.Logger, p *pipeline.Pipeline, store storage.Store) *Server {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "chat-triage")
	})

	h := &handlers{pipeline: p, store: store, logger: logger}

	r.Get("/healthz", h.health)
	r.Post("/api/chat", h.chat)

	r.Route("/admin/api", func(r chi.Router) {
		r.Get("/sessions", h.listSessions)
		r.Get("/sessions/{id}", h.getSession)
		r.Get("/sessions/{id}/audit", h.sessionAudit)
		r.Get("/audit", h.listAudit)
	})

	return &Server{Router: r, Port: port, logger: logger}
}

// Start blocks serving HTTP on the configured port.
func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	return http.ListenAndServe(fmt.Sprintf(":%d", s.Port), s.Router)
}
