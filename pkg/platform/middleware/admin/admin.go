package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"verigate/pkg/requestcontext"
)

const (
	AdminTokenHeader   = "X-Admin-Token"
	ServiceTokenHeader = "X-Service-Token"
)

// RequireAdminToken guards administrative routes behind the X-Admin-Token header.
// An empty expected token disables the routes entirely.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return requireToken(AdminTokenHeader, expectedToken, "admin token required", logger)
}

// RequireServiceToken guards service-to-service routes behind the
// X-Service-Token header. An empty expected token disables the routes.
func RequireServiceToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return requireToken(ServiceTokenHeader, expectedToken, "service token required", logger)
}

func requireToken(header, expectedToken, description string, logger *slog.Logger) func(http.Handler) http.Handler {
	body := []byte(`{"error":"unauthorized","error_description":"` + description + `"}`)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(header)
			// Use constant-time comparison to prevent timing attacks
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "token mismatch",
					"header", header,
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write(body)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
