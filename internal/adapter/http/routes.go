package http

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		// Deliverables
		r.Get("/deliverables", h.ListDeliverables)
		r.Post("/deliverables", h.CreateDeliverable)
		r.Get("/deliverables/{id}", h.GetDeliverable)
		r.Post("/deliverables/{id}/versions", h.SubmitVersion)

		// Versions (direct access)
		r.Get("/versions/{id}", h.GetVersion)

		// Review workflow (nested under versions)
		r.Post("/versions/{id}/workflow", h.CreateWorkflow)
		r.Get("/versions/{id}/workflow", h.GetWorkflow)
		r.Post("/versions/{id}/workflow/levels/{levelID}/decide", h.Decide)
		r.Get("/versions/{id}/workflow/levels/{levelID}/comments", h.ListLevelComments)
		r.Get("/versions/{id}/workflow/rounds", h.ListRounds)

		// Quality gate (nested under versions)
		r.Get("/versions/{id}/checklist", h.GetChecklist)
		r.Put("/versions/{id}/checklist/checks/{checkID}", h.UpdateCheck)

		// Checklist templates
		r.Get("/checklist-templates", h.ListTemplates)
		r.Post("/checklist-templates", h.CreateTemplate)
		r.Get("/checklist-templates/{id}", h.GetTemplate)
		r.Delete("/checklist-templates/{id}", h.DeleteTemplate)
	})
}
