package generation

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/novelforge/novelforge/internal/platform/httpx"
	"github.com/novelforge/novelforge/internal/shared"
)

// IdempotencyHeader carries the client's retry key.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes generation over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
	limiter func(http.Handler) http.Handler
}

// NewHandler constructs a Handler. perHour limits enqueue requests per user;
// zero disables the limit.
func NewHandler(logger *slog.Logger, service *Service, perHour int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{logger: logger, service: service}
	if perHour > 0 {
		h.limiter = httprate.Limit(perHour, time.Hour,
			httprate.WithKeyFuncs(userKey),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "generation limit reached, try again later")
			}),
		)
	}
	return h
}

// MountRoutes registers generation routes on an authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h.limiter != nil {
		r.With(h.limiter).Post("/novels/{novelID}/chapters/generate", h.enqueue)
	} else {
		r.Post("/novels/{novelID}/chapters/generate", h.enqueue)
	}
	r.Get("/generations/{taskID}", h.status)
}

func userKey(r *http.Request) (string, error) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		return httprate.KeyByIP(r)
	}
	return "user:" + strconv.FormatInt(id.UserID, 10), nil
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request) {
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
	key := r.Header.Get(IdempotencyHeader)
	if len(key) > 200 {
		httpx.RespondError(w, shared.NewValidationError(IdempotencyHeader, "must be at most 200 characters"))
		return
	}
	var req GenerateRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ticket, err := h.service.Enqueue(r.Context(), caller.UserID, novelID, req, key)
	if err != nil {
		if httpx.IsInternal(err) {
			h.logger.Error("enqueue generation", slog.Int64("novel_id", novelID), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("generation enqueued",
		slog.Int64("user_id", caller.UserID),
		slog.Int64("novel_id", novelID),
		slog.String("task_id", ticket.TaskID),
		slog.Bool("replayed", ticket.Replayed))
	w.Header().Set("Location", "/api/generations/"+ticket.TaskID)
	httpx.JSON(w, http.StatusAccepted, ticket)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	status, err := h.service.Status(r.Context(), caller.UserID, chi.URLParam(r, "taskID"))
	if err != nil {
		if httpx.IsInternal(err) {
			h.logger.Error("generation status", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, status)
}
