package adapthttp

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"todos/internal/domain"
)

type contextKey string

const userContextKey contextKey = "user"

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth validates the bearer token and puts the acting user id in the
// request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Unauthenticated variant: everyone acts as the empty owner.
		if s.disableAuth {
			next(w, r)
			return
		}

		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Access Denied. No Token Provided")
			return
		}

		userID, err := s.authSvc.VerifyToken(r.Context(), token)
		if errors.Is(err, domain.ErrUnauthenticated) {
			s.log.Debug("token rejected", "path", r.URL.Path, "error", err)
			writeMessage(w, http.StatusUnauthorized, "Invalid or Expired Token")
			return
		}
		if err != nil {
			s.internalError(w, r, err, "Internal Server Error")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, userID)
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, r.WithContext(ctx))
	}
}

// actingUser returns the user id set by requireAuth, or "" when auth is off.
func actingUser(ctx context.Context) string {
	id, _ := ctx.Value(userContextKey).(string)
	return id
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. ok is false only when the header is absent or uses another scheme;
// a present but empty token is returned as "" for the verifier to reject.
func bearerToken(header string) (token string, ok bool) {
	rest, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	token, _, _ = strings.Cut(rest, " ")
	return token, true
}

// loggingMiddleware logs one line per request and records request metrics.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(rec, r)
		duration := time.Since(start)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}

		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", rec.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if rec.ctx != nil {
			if id := actingUser(rec.ctx); id != "" {
				fields = append(fields, "user_id", id)
			}
		}
		s.log.Info("request", fields...)

		if s.metrics != nil {
			s.metrics.observe(r.Method, route, status, duration)
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}
