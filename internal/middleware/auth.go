package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/model"
	"github.com/taskflow/taskflow/internal/service"
)

// DefaultMinAuthDuration pads failed and successful lookups to the same time.
const DefaultMinAuthDuration = 200 * time.Millisecond

// Authenticator resolves a plaintext API key.
type Authenticator interface {
	AuthenticateAPIKey(ctx context.Context, apiKey string) service.Result[*model.AuthContext]
}

// AuthConfig holds configuration for the API key middleware.
type AuthConfig struct {
	Logger        *slog.Logger
	Authenticator Authenticator
	// MinDuration is the minimum time spent per authentication. Zero disables padding.
	MinDuration time.Duration
}

// APIKeyAuth authenticates requests carrying "X-API-Key: <key>" or
// "Authorization: Bearer <key>" and injects the auth context.
func APIKeyAuth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			pad := func() {
				if elapsed := time.Since(start); elapsed < cfg.MinDuration {
					time.Sleep(cfg.MinDuration - elapsed)
				}
			}

			key := extractAPIKey(r)
			res := cfg.Authenticator.AuthenticateAPIKey(r.Context(), key)
			pad()

			if !res.Success {
				attrs := []slog.Attr{
					slog.String("reason", res.Kind.String()),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				}
				if res.Kind == service.KindInternal {
					attrs = append(attrs, slog.Any("error", res.Err))
					cfg.Logger.LogAttrs(r.Context(), slog.LevelError, "authentication error", attrs...)
					writeError(w, http.StatusInternalServerError, res.Error, "")
					return
				}
				cfg.Logger.LogAttrs(r.Context(), slog.LevelWarn, "authentication failed", attrs...)
				writeError(w, http.StatusUnauthorized, res.Error, "")
				return
			}

			cfg.Logger.Info("authentication successful",
				slog.Int64("user_id", res.Data.UserID),
				slog.String("key_prefix", res.Data.KeyPrefix),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithAuth(r.Context(), res.Data)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractAPIKey prefers a Bearer token over X-API-Key.
func extractAPIKey(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}
