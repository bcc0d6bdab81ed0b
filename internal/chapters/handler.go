package chapters

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/novelforge/novelforge/internal/platform/httpx"
	"github.com/novelforge/novelforge/internal/reorder"
	"github.com/novelforge/novelforge/internal/shared"
)

// Handler exposes chapters over JSON.
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
	caller, novelID, ok := h.novelScope(w, r)
	if !ok {
		return
	}
	items, err := h.service.List(r.Context(), caller.UserID, novelID)
	if err != nil {
		h.fail(w, "list chapters", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ListResponse{Chapters: items})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller, novelID, ok := h.novelScope(w, r)
	if !ok {
		return
	}
	var req ChapterRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	chapter, err := h.service.Create(r.Context(), caller.UserID, novelID, req)
	if err != nil {
		h.fail(w, "create chapter", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, chapter)
}

func (h *Handler) reorder(w http.ResponseWriter, r *http.Request) {
	caller, novelID, ok := h.novelScope(w, r)
	if !ok {
		return
	}
	var items []reorder.Item
	if err := httpx.DecodeJSON(w, r, &items); err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.Reorder(r.Context(), caller.UserID, novelID, items)
	if err != nil {
		h.fail(w, "reorder chapters", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ListResponse{Chapters: out})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.chapterScope(w, r)
	if !ok {
		return
	}
	chapter, err := h.service.Get(r.Context(), caller.UserID, id)
	if err != nil {
		h.fail(w, "get chapter", err)
		return
	}
	httpx.JSON(w, http.StatusOK, chapter)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.chapterScope(w, r)
	if !ok {
		return
	}
	var req ChapterRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	chapter, err := h.service.Save(r.Context(), caller.UserID, id, req)
	if err != nil {
		h.fail(w, "save chapter", err)
		return
	}
	httpx.JSON(w, http.StatusOK, chapter)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.chapterScope(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), caller.UserID, id); err != nil {
		h.fail(w, "delete chapter", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) novelScope(w http.ResponseWriter, r *http.Request) (shared.Identity, int64, bool) {
	return h.scope(w, r, "novelID")
}

func (h *Handler) chapterScope(w http.ResponseWriter, r *http.Request) (shared.Identity, int64, bool) {
	return h.scope(w, r, "chapterID")
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request, param string) (shared.Identity, int64, bool) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return shared.Identity{}, 0, false
	}
	id, err := httpx.IDParam(r, param)
	if err != nil {
		httpx.RespondError(w, err)
		return shared.Identity{}, 0, false
	}
	return caller, id, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.IsInternal(err) {
		h.logger.Error(op, slog.Any("error", err))
	} else if errors.Is(err, shared.ErrConflict) {
		h.logger.Info(op+" conflict", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
