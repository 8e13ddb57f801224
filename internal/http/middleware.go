package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/example/facility-scheduler/internal/application"
)

// RequireAdminToken guards mutating catalog routes with a single
// bcrypt-hashed admin token supplied as a bearer credential. On success the
// request principal carries IsAdmin.
func RequireAdminToken(tokenHash []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingAdminToken)
				return
			}

			if err := bcrypt.CompareHashAndPassword(tokenHash, []byte(token)); err != nil {
				responder.writeJSON(r.Context(), w, http.StatusForbidden, errorResponse{
					ErrorCode: "AUTH_FORBIDDEN",
					Message:   "the admin token is not valid",
				})
				return
			}

			principal := application.Principal{Actor: actorFromRequest(r), IsAdmin: true}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// RequestLogger attaches a request-scoped logger to every request and logs
// start and completion with a monotonically increasing request id.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}

func extractBearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return strings.TrimSpace(r.Header.Get("X-Admin-Token"))
	}
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// actorFromRequest resolves the acting identity recorded in logs. The value
// is informational only and never grants permissions.
func actorFromRequest(r *http.Request) string {
	if actor := strings.TrimSpace(r.Header.Get("X-Actor")); actor != "" {
		return actor
	}
	return "admin"
}
