// internal/app/features/groups/groupview.go
package groups

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
)

// ServeGroupView handles GET /groups/{id}.
func (h *Handler) ServeGroupView(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.Gates.RequireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, ok := h.loadGroup(ctx, w, r, sc)
	if !ok {
		return
	}
	role, _, err := h.Members.GroupRole(ctx, g.ID, sc.UserID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load membership failed", err, "")
		return
	}
	canManage := h.Admins.CallerAdministersGroup(ctx, sc, g.ID)
	uierrors.WriteJSON(w, http.StatusOK, toResponse(g, role, canManage))
}
