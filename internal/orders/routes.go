package orders

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers order routes. Callers must have applied rbac Authenticate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/my-orders", h.ListMine)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireSuperadmin)
		r.Get("/all", h.ListAll)
		r.Get("/export.xlsx", h.Export)
		r.Patch("/{id}/status", h.UpdateStatus)
	})
	r.Get("/{id}", h.Show)
	r.Post("/{id}/invoice", h.GenerateInvoice)
}
