package worldnotes

import "github.com/go-chi/chi/v5"

// MountRoutes registers world-note routes on an authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/novels/{novelID}/world-notes", h.list)
	r.Post("/novels/{novelID}/world-notes", h.create)
	r.Get("/world-notes/{noteID}", h.show)
	r.Put("/world-notes/{noteID}", h.update)
	r.Delete("/world-notes/{noteID}", h.remove)
}
