// internal/app/features/groups/groupdelete.go
package groups

import (
	"context"
	"fmt"
	"net/http"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// HandleDeleteGroup handles POST /groups/{id}/delete (group admins only).
// The group's events, their subscriptions and its memberships go with it.
func (h *Handler) HandleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.Gates.RequireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	g, ok := h.loadGroup(ctx, w, r, sc)
	if !ok {
		return
	}
	if !h.requireGroupAdmin(ctx, w, sc, g) {
		return
	}

	if err := h.cascadeDelete(ctx, g.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "delete group failed", err, "")
		return
	}

	h.Log.Info("group deleted", zap.String("group_id", g.ID.Hex()), zap.String("user_id", sc.UserID.Hex()))
	h.Audit.GroupDeleted(ctx, r, sc.UserID, g.ID, g.Name)
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// cascadeDelete removes dependents first so a failure part way never leaves
// rows pointing at a missing group.
func (h *Handler) cascadeDelete(ctx context.Context, groupID primitive.ObjectID) error {
	eventIDs, err := h.Events.IDsByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list group events: %w", err)
	}
	if _, err := h.Subscriptions.DeleteByEvents(ctx, eventIDs); err != nil {
		return fmt.Errorf("delete subscriptions: %w", err)
	}
	if _, err := h.Events.DeleteByGroup(ctx, groupID); err != nil {
		return fmt.Errorf("delete events: %w", err)
	}
	if _, err := h.Members.DeleteByGroup(ctx, groupID); err != nil {
		return fmt.Errorf("delete memberships: %w", err)
	}
	if _, err := h.Groups.Delete(ctx, groupID); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}
