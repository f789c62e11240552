package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// RequireUser enforces bearer JWT auth for HTTP handlers. On success the
// authenticated user is attached to the request context.
func RequireUser(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if service == nil || !service.Enabled() {
				writeUnauthorized(w, "auth not configured")
				return
			}

			token := extractBearer(r.Header)
			if token == "" {
				writeUnauthorized(w, "missing credentials")
				return
			}

			user, err := service.jwt.Validate(token)
			if err != nil {
				if logger != nil {
					logger.Warn("jwt validation failed", "error", err)
				}
				writeUnauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}

func extractBearer(header http.Header) string {
	for _, value := range header.Values("Authorization") {
		lower := strings.ToLower(value)
		if strings.HasPrefix(lower, "bearer ") {
			return strings.TrimSpace(value[len("bearer "):])
		}
	}
	return ""
}
