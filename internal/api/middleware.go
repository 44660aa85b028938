package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/terra-clan/contest-engine/internal/contest"
	"github.com/terra-clan/contest-engine/internal/models"
)

// AuthMiddleware handles bearer token authentication
type AuthMiddleware struct {
	manager contest.Manager
}

// NewAuthMiddleware creates new auth middleware
func NewAuthMiddleware(manager contest.Manager) *AuthMiddleware {
	return &AuthMiddleware{manager: manager}
}

// Authenticate resolves the bearer token to a user.
// Supports "Authorization: Bearer <token>" and, for websocket upgrades
// where browsers cannot set headers, a "token" query parameter.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}

		user, err := m.manager.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, contest.ErrUnauthenticated) {
				slog.Warn("invalid token attempt", "token_prefix", maskToken(token), "remote_addr", r.RemoteAddr)
				respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			slog.Error("failed to authenticate request", "error", err, "token_prefix", maskToken(token))
			respondError(w, http.StatusInternalServerError, "internal_error", "authentication error")
			return
		}

		slog.Debug("authenticated request", "user_id", user.ID, "role", user.Role)

		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

// RequireRole returns middleware that admits only the given roles
func (m *AuthMiddleware) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}

			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			slog.Warn("role denied",
				"user_id", user.ID,
				"role", user.Role,
				"required", roles,
			)
			respondError(w, http.StatusForbidden, "forbidden", "your role cannot access this resource")
		})
	}
}

// extractToken reads the token from the Authorization header or the query string
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// maskToken returns the first 8 chars of a token for safe logging
func maskToken(token string) string {
	if len(token) < 8 {
		return "***"
	}
	return token[:8] + "..."
}

// loggingMiddleware logs HTTP requests using slog and records their latency
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			elapsed := time.Since(start)
			s.metrics.ObserveRequest(r.Method, routePattern(r), ww.Status(), elapsed)

			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", elapsed.Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// routePattern keeps metric labels bounded by using the matched chi pattern
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
