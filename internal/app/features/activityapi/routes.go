// internal/app/features/activityapi/routes.go
package activityapi

import (
	"net/http"

	"github.com/dalemusser/engagehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /api/activity router. Most of the trail is admin
// territory; the per-user view allows self-access and is checked in the
// handler.
func Routes(h *Handler, verifier *auth.Verifier) http.Handler {
	r := chi.NewRouter()
	r.Use(verifier.RequireAccount)

	r.Get("/stats/recent", h.recent)
	r.Get("/user/{userId}", h.byUser)
	r.Get("/resource/{resource}/{resourceId}", h.byResource)

	r.Group(func(ar chi.Router) {
		ar.Use(auth.RequireRole("admin"))
		ar.Get("/", h.list)
		ar.Get("/stats/overview", h.statsOverview)
		ar.Get("/export/csv", h.exportCSV)
		ar.Delete("/cleanup", h.cleanup)
		ar.Get("/{id}", h.get)
	})

	return r
}
