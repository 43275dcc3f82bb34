package usage

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/careercoach/coach/internal/api"
	"github.com/careercoach/coach/internal/auth"
	"github.com/careercoach/coach/internal/subscriptions"
)

// IncrementRequest is the body of POST /usage/increment.
type IncrementRequest struct {
	Type string `json:"type" validate:"required,oneof=resume interview"`
}

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

func (h *Handler) Increment(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	var req IncrementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrInvalidUsageType)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.ErrInvalidUsageType)
		return
	}

	kind, err := ParseKind(req.Type)
	if err != nil {
		api.HandleError(w, api.ErrInvalidUsageType)
		return
	}

	result, err := h.svc.Increment(r.Context(), userID, kind)
	if errors.Is(err, ErrUnknownKind) {
		api.HandleError(w, api.ErrInvalidUsageType)
		return
	}
	if err != nil {
		slog.Error("incrementing usage", "error", err, "user_id", userID, "kind", kind)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONBody(w, http.StatusOK, IncrementResponse(result))
}

// IncrementResponse builds the wire body: the plan for unmetered users,
// otherwise the new value of the counter that was bumped.
func IncrementResponse(result *IncrementResult) map[string]any {
	body := map[string]any{"success": true}
	if !result.Metered {
		body["plan"] = subscriptions.PlanFreeBYOK
		return body
	}
	body[result.Kind.CounterField()] = result.Used
	return body
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	current, err := h.svc.Current(r.Context(), userID)
	if err != nil {
		slog.Error("reading current usage", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONBody(w, http.StatusOK, current)
}
