package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["error"]
}

func TestHandleError_Kinds(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"unauthenticated", ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"invalid token", ErrInvalidToken, http.StatusUnauthorized, "invalid or expired token"},
		{"invalid usage type", ErrInvalidUsageType, http.StatusBadRequest, `type must be "resume" or "interview"`},
		{"wrapped app error", fmt.Errorf("decoding: %w", ErrBadRequest), http.StatusBadRequest, "bad request"},
		{"not found", NotFound("api key not found"), http.StatusNotFound, "api key not found"},
		{"plain error is internal", errors.New("pg: connection refused"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.message, decodeError(t, rec))
		})
	}
}

func TestJSONBody_NoEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONBody(rec, http.StatusOK, map[string]any{"success": true})

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, true, body["success"])
	assert.NotContains(t, body, "data")
}

func TestJSON_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, []string{})

	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}
