package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

// SecurityHeaders marks every response as a non-embeddable, non-cacheable
// JSON document. Entitlement decisions are per user and change with every
// increment, so intermediaries must never store them.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Cache-Control", "no-store")
		h.Add("Vary", "Authorization")
		next.ServeHTTP(w, r)
	})
}

// defaultOrigin is the web client's dev server.
const defaultOrigin = "http://localhost:5173"

// CORS builds the options for the web client. A wildcard origin disables
// credentials because browsers reject that combination.
func CORS(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{defaultOrigin}
	}

	return cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{
			RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After",
		},
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
		MaxAge:           600,
	}
}
