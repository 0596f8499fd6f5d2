// internal/app/features/eventsapi/routes.go
package eventsapi

import (
	"net/http"

	"github.com/dalemusser/engagehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /api/events router. Ownership checks live in the
// handlers because they depend on the loaded event's coordinator.
func Routes(h *Handler, verifier *auth.Verifier) http.Handler {
	r := chi.NewRouter()
	r.Use(verifier.RequireAccount)

	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/stats/upcoming", h.upcoming)
	r.Get("/stats/by-coordinator/{id}", h.byCoordinator)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
	r.Put("/{id}/status", h.updateStatus)
	r.Post("/{id}/register", h.register)

	return r
}
