package apikeys

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/careercoach/coach/internal/api"
	"github.com/careercoach/coach/internal/auth"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	keys, err := h.svc.List(r.Context(), userID)
	if err != nil {
		slog.Error("listing api keys", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, keys)
}

func (h *Handler) Store(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	provider := chi.URLParam(r, "provider")
	if !ValidProvider(provider) {
		api.HandleError(w, api.ErrInvalidProvider)
		return
	}

	var req StoreKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.Invalid(err.Error()))
		return
	}

	stored, err := h.svc.Store(r.Context(), userID, provider, req.Key)
	if err != nil {
		slog.Error("storing api key", "error", err, "user_id", userID, "provider", provider)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, stored)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	provider := chi.URLParam(r, "provider")
	existed, err := h.svc.Delete(r.Context(), userID, provider)
	if err != nil {
		if errors.Is(err, ErrUnknownProvider) {
			api.HandleError(w, api.ErrInvalidProvider)
			return
		}
		slog.Error("deleting api key", "error", err, "user_id", userID, "provider", provider)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if !existed {
		api.HandleError(w, api.NotFound("api key not found"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
