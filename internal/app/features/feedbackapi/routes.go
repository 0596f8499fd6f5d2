// internal/app/features/feedbackapi/routes.go
package feedbackapi

import (
	"net/http"

	"github.com/dalemusser/engagehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /api/feedback router. The global overview is admin
// only; attendee ownership on update and delete is checked in the
// handlers.
func Routes(h *Handler, verifier *auth.Verifier) http.Handler {
	r := chi.NewRouter()
	r.Use(verifier.RequireAccount)

	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/stats/by-expert/{id}", h.statsByExpert)
	r.Get("/stats/by-event/{id}", h.statsByEvent)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)

	r.Group(func(ar chi.Router) {
		ar.Use(auth.RequireRole("admin"))
		ar.Get("/stats/overview", h.statsOverview)
	})

	return r
}
