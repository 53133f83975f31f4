// internal/app/features/admin/routes.go
package admin

import (
	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the admin endpoints, typically at /admin. The middleware
// only checks for a session; each handler runs the ADMIN gate.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/users", h.ServeUsers)
		pr.Get("/users/{id}", h.ServeUser)
		pr.Post("/users/{id}/approve", h.HandleApprove)
		pr.Post("/users/{id}/activate", h.HandleActivate)
		pr.Post("/users/{id}/deactivate", h.HandleDeactivate)
		pr.Post("/users/{id}/role", h.HandleSetRole)
		pr.Post("/users/{id}/delete", h.HandleDelete)

		pr.Post("/cleanup-pending", h.HandleCleanupPending)

		pr.Get("/audit", h.ServeAudit)
	})

	return r
}
