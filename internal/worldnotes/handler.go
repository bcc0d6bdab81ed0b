package worldnotes

import (
	"log/slog"
	"net/http"

	"github.com/novelforge/novelforge/internal/platform/httpx"
)

// Handler exposes world notes over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	novelID, err := httpx.IDParam(r, "novelID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	notes, err := h.service.List(r.Context(), caller.UserID, novelID, ListRequest{Category: Category(r.URL.Query().Get("category"))})
	if err != nil {
		h.fail(w, "list world notes", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ListResponse{Notes: notes})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	novelID, err := httpx.IDParam(r, "novelID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req NoteRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	n, err := h.service.Create(r.Context(), caller.UserID, novelID, req)
	if err != nil {
		h.fail(w, "create world note", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, n)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.IDParam(r, "noteID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	n, err := h.service.Get(r.Context(), caller.UserID, id)
	if err != nil {
		h.fail(w, "get world note", err)
		return
	}
	httpx.JSON(w, http.StatusOK, n)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.IDParam(r, "noteID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req NoteRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	n, err := h.service.Update(r.Context(), caller.UserID, id, req)
	if err != nil {
		h.fail(w, "update world note", err)
		return
	}
	httpx.JSON(w, http.StatusOK, n)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.IDParam(r, "noteID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), caller.UserID, id); err != nil {
		h.fail(w, "delete world note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.IsInternal(err) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
