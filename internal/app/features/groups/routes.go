// internal/app/features/groups/routes.go
package groups

import (
	"net/http"

	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the group endpoints. createEvent, when non-nil, serves
// POST /groups/{id}/events; event creation lives with the events feature.
func Routes(h *Handler, sm *auth.SessionManager, createEvent http.HandlerFunc) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeGroupsList)
		pr.Post("/", h.HandleCreateGroup)

		pr.Get("/{id}", h.ServeGroupView)
		pr.Post("/{id}/edit", h.HandleEditGroup)
		pr.Post("/{id}/delete", h.HandleDeleteGroup)

		pr.Post("/{id}/join", h.HandleJoin)
		pr.Post("/{id}/leave", h.HandleLeave)

		pr.Get("/{id}/members", h.ServeMembers)
		pr.Post("/{id}/members", h.HandleAddMember)
		pr.Post("/{id}/members/{userID}/role", h.HandleSetMemberRole)
		pr.Post("/{id}/members/{userID}/remove", h.HandleRemoveMember)

		if createEvent != nil {
			pr.Post("/{id}/events", createEvent)
		}
	})

	return r
}
