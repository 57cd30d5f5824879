package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all run routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", h.HandleListRuns)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetRun)
			r.Get("/records", h.HandleGetRecords)
			r.Get("/extrapolations", h.HandleGetExtrapolations)
			r.Get("/export", h.HandleExport)
		})
	})
}
