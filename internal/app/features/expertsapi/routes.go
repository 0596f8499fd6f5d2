// internal/app/features/expertsapi/routes.go
package expertsapi

import (
	"net/http"

	"github.com/dalemusser/engagehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /api/experts router. Reading is open to any
// authenticated account; mutations and the export are admin or
// coordinator work, which is every role, so only the bearer check
// applies.
func Routes(h *Handler, verifier *auth.Verifier) http.Handler {
	r := chi.NewRouter()
	r.Use(verifier.RequireAccount)

	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/stats/top-rated", h.topRated)
	r.Get("/stats/by-expertise", h.byExpertise)
	r.Get("/export/csv", h.exportCSV)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)

	return r
}
