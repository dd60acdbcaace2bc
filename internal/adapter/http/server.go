package adapthttp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"todos/internal/app"
)

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	authSvc     *app.AuthService
	todos       *app.TodoService
	log         *slog.Logger
	oidcConfig  *OIDCConfig
	health      func(context.Context) error
	corsOrigin  string
	disableAuth bool
	metrics     *metrics
}

// New creates a Server wired to the given application services. Metrics are
// registered on reg; pass nil to use a private registry.
func New(authSvc *app.AuthService, todos *app.TodoService, log *slog.Logger, reg *prometheus.Registry) *Server {
	if log == nil {
		log = slog.Default()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Server{
		authSvc:    authSvc,
		todos:      todos,
		log:        log,
		corsOrigin: "*",
		metrics:    newMetrics(reg),
	}
}

// WithoutAuth turns the server into the unauthenticated variant: no token
// gate, no /register or /login, and todos carry no owner.
func (s *Server) WithoutAuth() *Server {
	s.disableAuth = true
	return s
}

// WithOIDC enables the SSO login routes.
func (s *Server) WithOIDC(cfg *OIDCConfig) *Server {
	s.oidcConfig = cfg
	return s
}

// WithHealthCheck sets the probe used by /health.
func (s *Server) WithHealthCheck(fn func(context.Context) error) *Server {
	s.health = fn
	return s
}

// WithCORSOrigin sets the allowed origin; empty disables CORS headers.
func (s *Server) WithCORSOrigin(origin string) *Server {
	s.corsOrigin = origin
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.handler())

	if !s.disableAuth {
		mux.HandleFunc("POST /register", s.handleRegister)
		mux.HandleFunc("POST /login", s.handleLogin)
		if s.oidcConfig != nil {
			mux.HandleFunc("GET /auth/sso/login", s.handleSSOLogin)
			mux.HandleFunc("GET /auth/sso/callback", s.handleSSOCallback)
		}
	}

	mux.HandleFunc("GET /todos", s.requireAuth(s.handleListTodos))
	mux.HandleFunc("POST /todos", s.requireAuth(s.handleCreateTodo))
	mux.HandleFunc("PUT /todos/{id}", s.requireAuth(s.handleUpdateTodo))
	mux.HandleFunc("DELETE /todos/{id}", s.requireAuth(s.handleDeleteTodo))

	return s.loggingMiddleware(withCORS(s.corsOrigin, withNoCache(mux)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.log.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
