package novels

import (
	"log/slog"
	"net/http"

	"github.com/novelforge/novelforge/internal/platform/httpx"
)

// Handler exposes novels over JSON.
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
	q := r.URL.Query()
	resp, err := h.service.List(r.Context(), caller.UserID, ListRequest{
		Search: q.Get("q"),
		Status: Status(q.Get("status")),
		Page:   httpx.QueryInt(r, "page", 1),
		Limit:  httpx.QueryInt(r, "per_page", defaultPageSize),
	})
	if err != nil {
		h.fail(w, "list novels", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req NovelRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	novel, err := h.service.Create(r.Context(), caller.UserID, req)
	if err != nil {
		h.fail(w, "create novel", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, novel)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.IDParam(r, "novelID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	novel, err := h.service.Get(r.Context(), caller.UserID, id)
	if err != nil {
		h.fail(w, "get novel", err)
		return
	}
	httpx.JSON(w, http.StatusOK, novel)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.IDParam(r, "novelID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req NovelRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	novel, err := h.service.Update(r.Context(), caller.UserID, id, req)
	if err != nil {
		h.fail(w, "update novel", err)
		return
	}
	httpx.JSON(w, http.StatusOK, novel)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.IDParam(r, "novelID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), caller.UserID, id); err != nil {
		h.fail(w, "delete novel", err)
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
