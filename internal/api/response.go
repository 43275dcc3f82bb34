package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// envelope is the {"data": ...} wrapper used by the api-keys endpoints.
type envelope struct {
	Data any `json:"data"`
}

type errorBody struct {
	Error string `json:"error"`
}

// JSON wraps data in the {"data": ...} envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, envelope{Data: data})
}

// JSONBody writes body as the top-level document. The entitlement and usage
// endpoints use it because the web client reads their fields directly.
func JSONBody(w http.ResponseWriter, status int, body any) {
	write(w, status, body)
}

func write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response body", "error", err, "status", status)
	}
}
