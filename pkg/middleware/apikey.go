package middleware

import (
	"crypto/subtle"
	"net/http"

	"shortlink/pkg/logging"
)

// APIKeyHeader is the header the management API is authenticated with.
// Redirects stay unauthenticated; only /api routes are gated.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth rejects requests whose X-API-Key header does not match the
// configured key. Rejection happens before any store access. The presented
// key is compared in constant time and is never logged.
func APIKeyAuth(apiKey string, logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(presented), []byte(apiKey)) != 1 {
				logger.Warn(r.Context(), "rejected api request",
					"path", r.URL.Path,
					"key_present", presented != "",
				)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CorrelationID tags every request context with a correlation ID so log
// records across the request can be tied together.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(logging.WithCorrelationID(r.Context())))
	})
}
