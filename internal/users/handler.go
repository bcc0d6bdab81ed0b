package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/novelforge/novelforge/internal/platform/httpx"
)

// Handler manages user administration endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers user routes. The caller guards them with the admin
// role.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/users", h.listUsers)
	r.Patch("/users/{userID}", h.setActive)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ListUsers(r.Context(), ListFilters{
		Search: r.URL.Query().Get("q"),
		Page:   httpx.QueryInt(r, "page", 1),
		Limit:  httpx.QueryInt(r, "limit", 50),
	})
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.IDParam(r, "userID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req ActiveRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.SetActive(r.Context(), caller, id, *req.IsActive)
	if err != nil {
		if httpx.IsInternal(err) {
			h.logger.Error("set user active failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("user active changed", slog.Int64("user_id", id), slog.Bool("active", user.IsActive), slog.Int64("by", caller.UserID))
	httpx.JSON(w, http.StatusOK, user)
}
