// internal/app/features/usersapi/routes.go
package usersapi

import (
	"net/http"

	"github.com/dalemusser/engagehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /api/users router. All endpoints require a bearer
// token; the admin-only ones additionally require the admin role. The
// self-or-admin endpoints check ownership in the handler.
func Routes(h *Handler, verifier *auth.Verifier) http.Handler {
	r := chi.NewRouter()
	r.Use(verifier.RequireAccount)

	r.Get("/dashboard", h.dashboard)
	r.Get("/{id}", h.getAccount)
	r.Get("/{id}/activities", h.listActivities)

	r.Group(func(ar chi.Router) {
		ar.Use(auth.RequireRole("admin"))
		ar.Get("/", h.listAccounts)
		ar.Put("/{id}/role", h.setRole)
		ar.Put("/{id}/deactivate", h.deactivate)
	})

	return r
}
