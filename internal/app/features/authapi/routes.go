// internal/app/features/authapi/routes.go
package authapi

import (
	"net/http"

	"github.com/dalemusser/engagehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a router with the auth endpoints.
//
// The Google flow endpoints are public; everything else requires a
// bearer token.
func Routes(h *Handler, verifier *auth.Verifier) http.Handler {
	r := chi.NewRouter()

	r.Get("/google", h.startAuth)
	r.Get("/google/callback", h.handleCallback)

	r.Group(func(pr chi.Router) {
		pr.Use(verifier.RequireAccount)
		pr.Get("/profile", h.getProfile)
		pr.Put("/profile", h.updateProfile)
		pr.Post("/logout", h.logout)
		pr.Post("/refresh", h.refresh)
		pr.Get("/check", h.check)
	})

	return r
}
