package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func stubHandlers() HandlerSet {
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	return HandlerSet{
		GetEntitlements: ok,
		GetLiveOverlay:  ok,
		IncrementUsage:  ok,
		GetCurrentUsage: ok,
		ListAPIKeys:     ok,
		StoreAPIKey:     ok,
		DeleteAPIKey:    ok,
		AuthMiddleware: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") == "" {
					HandleError(w, ErrUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
	}
}

func TestRouter_ProtectedRoutesRequireAuth(t *testing.T) {
	router := NewRouter(RouterConfig{}, stubHandlers())

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/entitlements"},
		{http.MethodGet, "/api/v1/entitlements/live-overlay"},
		{http.MethodPost, "/api/v1/usage/increment"},
		{http.MethodGet, "/api/v1/usage"},
		{http.MethodGet, "/api/v1/api-keys"},
		{http.MethodPut, "/api/v1/api-keys/openai"},
		{http.MethodDelete, "/api/v1/api-keys/openai"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)

		req = httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("Authorization", "Bearer x")
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestRouter_Readiness(t *testing.T) {
	router := NewRouter(RouterConfig{
		ReadinessChecks: map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("down") },
			"nats":     nil,
		},
	}, stubHandlers())

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"unhealthy"`)
	assert.Contains(t, rec.Body.String(), `"nats":"not configured"`)
	assert.Contains(t, rec.Body.String(), `"database":"healthy"`)
}

func TestRouter_Liveness(t *testing.T) {
	router := NewRouter(RouterConfig{}, stubHandlers())

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}

func TestRouter_PreflightAndHeaders(t *testing.T) {
	router := NewRouter(RouterConfig{}, stubHandlers())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/usage/increment", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/entitlements", nil)
	req.Header.Set("Authorization", "Bearer x")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
