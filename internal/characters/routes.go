package characters

import "github.com/go-chi/chi/v5"

// MountRoutes registers character routes on an authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/novels/{novelID}/characters", h.list)
	r.Post("/novels/{novelID}/characters", h.create)
	r.Get("/characters/{characterID}", h.show)
	r.Put("/characters/{characterID}", h.update)
	r.Delete("/characters/{characterID}", h.remove)
}
