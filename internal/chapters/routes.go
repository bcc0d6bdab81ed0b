package chapters

import "github.com/go-chi/chi/v5"

// MountRoutes registers chapter routes on an authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/novels/{novelID}/chapters", h.list)
	r.Post("/novels/{novelID}/chapters", h.create)
	r.Put("/novels/{novelID}/chapters/order", h.reorder)
	r.Get("/chapters/{chapterID}", h.show)
	r.Put("/chapters/{chapterID}", h.save)
	r.Delete("/chapters/{chapterID}", h.remove)
}
