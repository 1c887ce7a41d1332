package daemon

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"fingergate/internal/logging"
)

// requireToken returns a middleware that validates bearer tokens.
// If token is empty, no authentication is required and all requests pass through.
// Otherwise, requests must include "Authorization: Bearer <token>" header.
func requireToken(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				logging.WithContext(r.Context(), logger).Warn("unauthorized api request",
					logging.String("path", r.URL.Path),
					logging.String("remote", r.RemoteAddr),
				)
				writeError(logger, w, http.StatusUnauthorized, "unauthorized", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
