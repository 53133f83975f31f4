// internal/app/features/userinfo/routes.go
package userinfo

import "github.com/go-chi/chi/v5"

// MountRoutes registers the /api account endpoints on the supplied router.
// Each handler runs the gate itself.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/api/me", h.ServeMe)
	r.Get("/api/calendar-token", h.ServeCalendarToken)
}
