// Package server exposes the drafting pipeline over HTTP: one route per
// pipeline operation, cabinet authentication, and a websocket for state
// watching.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nmorel/lexidraft/internal/auth"
	"github.com/nmorel/lexidraft/internal/session"
)

// requestTimeout bounds non-websocket requests. Assistant calls dominate the
// budget, so this stays well above the assistant client timeout floor.
const requestTimeout = 5 * time.Minute

type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger

	httpServer *http.Server
}

func New(port int, logger *slog.Logger, authenticator *auth.Authenticator, sessions *session.Registry) *Server {
	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))

	// Add auth middleware if authenticator is provided
	if authenticator != nil {
		r.Use(AuthMiddleware(authenticator))
	}

	r.Use(TimeoutMiddleware(requestTimeout))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "lexidraft")
	})

	s := &Server{
		Router: r,
		Port:   port,
		logger: logger,
	}
	s.mountRoutes(sessions)
	return s
}

func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.Port),
		Handler: s.Router,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
