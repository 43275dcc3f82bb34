package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/careercoach/coach/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Entitlement handlers
	GetEntitlements http.HandlerFunc
	GetLiveOverlay  http.HandlerFunc

	// Usage handlers
	IncrementUsage  http.HandlerFunc
	GetCurrentUsage http.HandlerFunc

	// API key handlers
	ListAPIKeys  http.HandlerFunc
	StoreAPIKey  http.HandlerFunc
	DeleteAPIKey http.HandlerFunc

	// Auth middleware
	AuthMiddleware func(http.Handler) http.Handler
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	APIRateLimiter     func(http.Handler) http.Handler

	// Readiness checks keyed by dependency name. A nil check means "not configured".
	ReadinessChecks map[string]HealthCheck
}

func NewRouter(cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe: always 200
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe over every configured dependency
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{"status": "healthy"}
		status := http.StatusOK

		for name, check := range cfg.ReadinessChecks {
			if check == nil {
				health[name] = "not configured"
				continue
			}
			if err := check(r.Context()); err != nil {
				health[name] = "unhealthy"
				health["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			health[name] = "healthy"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1. Every route needs a bearer token.
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.APIRateLimiter != nil {
			r.Use(cfg.APIRateLimiter)
		}
		r.Use(h.AuthMiddleware)

		r.Route("/entitlements", func(r chi.Router) {
			r.Get("/", h.GetEntitlements)
			r.Get("/live-overlay", h.GetLiveOverlay)
		})

		r.Route("/usage", func(r chi.Router) {
			r.Get("/", h.GetCurrentUsage)
			r.Post("/increment", h.IncrementUsage)
		})

		r.Route("/api-keys", func(r chi.Router) {
			r.Get("/", h.ListAPIKeys)
			r.Put("/{provider}", h.StoreAPIKey)
			r.Delete("/{provider}", h.DeleteAPIKey)
		})
	})

	return r
}
