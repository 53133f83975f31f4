// internal/app/features/events/routes.go
package events

import (
	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts /events. Event creation is mounted under /groups by the
// groups feature using HandleCreateEvent.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeEventsList)
		pr.Get("/export.ics", h.ServeExportICS)

		pr.Get("/{id}", h.ServeEventView)
		pr.Get("/{id}/calendar.ics", h.ServeEventICS)
		pr.Post("/{id}/edit", h.HandleEditEvent)
		pr.Post("/{id}/delete", h.HandleDeleteEvent)
		pr.Post("/{id}/subscribe", h.HandleSubscribe)
		pr.Post("/{id}/unsubscribe", h.HandleUnsubscribe)
	})

	return r
}

// FeedRoutes mounts /calendar. Feeds are fetched by calendar clients without
// a session; the token in the path identifies the user.
func FeedRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	// The token itself contains dots, so the .ics suffix is stripped in the
	// handler rather than matched by the pattern.
	r.Get("/{token}", h.ServeFeed)
	return r
}
