// internal/app/features/groups/membership.go
package groups

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	membershipstore "github.com/dalemusser/eventhub/internal/app/store/memberships"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// HandleJoin handles POST /groups/{id}/join. Only groups the caller can
// discover may be joined; members of a hidden group are added by one of its
// admins through HandleAddMember.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
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

	err := h.Members.Add(ctx, g.ID, sc.UserID, models.GroupRoleMember)
	if errors.Is(err, membershipstore.ErrDuplicateMembership) {
		uierrors.Conflict(w, "You are already a member of this group.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "join group failed", err, "")
		return
	}

	h.Log.Info("joined group", zap.String("group_id", g.ID.Hex()), zap.String("user_id", sc.UserID.Hex()))
	h.Audit.MemberAddedToGroup(ctx, r, sc.UserID, sc.UserID, g.ID, string(models.GroupRoleMember))
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "joined", "role": string(models.GroupRoleMember)})
}

// HandleLeave handles POST /groups/{id}/leave. The last admin cannot leave;
// they must promote someone else or delete the group. Leaving drops the
// caller's subscriptions to the group's events.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.Gates.RequireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, ok := h.loadGroup(ctx, w, r, sc)
	if !ok {
		return
	}

	_, err := h.Members.RemoveMember(ctx, g.ID, sc.UserID)
	switch {
	case errors.Is(err, membershipstore.ErrNotMember):
		uierrors.Write(w, http.StatusBadRequest, "not_member", "You are not a member of this group.")
		return
	case errors.Is(err, membershipstore.ErrLastAdmin):
		uierrors.Write(w, http.StatusConflict, "last_admin", "The last group administrator cannot leave the group.")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "leave group failed", err, "")
		return
	}

	if err := h.dropGroupSubscriptions(ctx, g.ID, sc.UserID); err != nil {
		h.ErrLog.LogServerError(w, r, "drop subscriptions failed", err, "")
		return
	}

	h.Log.Info("left group", zap.String("group_id", g.ID.Hex()), zap.String("user_id", sc.UserID.Hex()))
	h.Audit.MemberRemovedFromGroup(ctx, r, sc.UserID, sc.UserID, g.ID)
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// dropGroupSubscriptions removes userID's subscriptions to the group's
// events. It runs after the membership is gone.
func (h *Handler) dropGroupSubscriptions(ctx context.Context, groupID, userID primitive.ObjectID) error {
	eventIDs, err := h.Events.IDsByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list group events: %w", err)
	}
	if _, err := h.Subscriptions.DeleteByUserInEvents(ctx, userID, eventIDs); err != nil {
		return fmt.Errorf("delete subscriptions: %w", err)
	}
	return nil
}
