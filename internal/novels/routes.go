package novels

import "github.com/go-chi/chi/v5"

// MountRoutes registers novel routes on an authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/novels", h.list)
	r.Post("/novels", h.create)
	r.Get("/novels/{novelID}", h.show)
	r.Put("/novels/{novelID}", h.update)
	r.Delete("/novels/{novelID}", h.remove)
}
