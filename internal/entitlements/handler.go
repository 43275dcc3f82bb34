package entitlements

import (
	"log/slog"
	"net/http"

	"github.com/careercoach/coach/internal/api"
	"github.com/careercoach/coach/internal/auth"
)

type Handler struct {
	resolver *Resolver
}

func NewHandler(resolver *Resolver) *Handler {
	return &Handler{resolver: resolver}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	decision, err := h.resolver.Resolve(r.Context(), userID)
	if err != nil {
		slog.Error("resolving entitlements", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONBody(w, http.StatusOK, decision)
}

func (h *Handler) GetLiveOverlay(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	decision, err := h.resolver.ResolveLiveOverlay(r.Context(), userID)
	if err != nil {
		slog.Error("resolving live overlay entitlements", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONBody(w, http.StatusOK, decision)
}
