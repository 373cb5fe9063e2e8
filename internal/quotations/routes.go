package quotations

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers quotation routes. Callers must have applied rbac Authenticate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/AddtoQuotation", h.Form)
	r.Post("/", h.Create)
	r.Get("/", h.ListMine)
	r.Put("/negotiate/{quotation_id}", h.Negotiate)
	r.Put("/finalDecision/{quotation_id}", h.FinalDecision)
	r.Delete("/delete/{quotation_id}", h.Delete)
	r.Get("/{quotation_id}", h.Show)
	r.Get("/{quotation_id}/history", h.History)

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAdmin)
		r.Get("/admin", h.ListAdmin)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireReviewer)
		r.Put("/review/{quotation_id}", h.Review)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireSuperadmin)
		r.Post("/decision/{quotation_id}", h.Decision)
	})
}
