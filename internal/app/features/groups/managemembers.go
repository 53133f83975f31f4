// internal/app/features/groups/managemembers.go
package groups

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	membershipstore "github.com/dalemusser/eventhub/internal/app/store/memberships"
	"github.com/dalemusser/eventhub/internal/app/store/queries/groupmembers"
	"github.com/dalemusser/eventhub/internal/app/system/inputval"
	"github.com/dalemusser/eventhub/internal/app/system/normalize"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type membersResponse struct {
	GroupID string                `json:"group_id"`
	Members []groupmembers.Member `json:"members"`
}

// ServeMembers handles GET /groups/{id}/members. Only members of the group
// and platform admins see the roster.
func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
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
	if !sc.IsAdmin() {
		_, member, err := h.Members.GroupRole(ctx, g.ID, sc.UserID)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load membership failed", err, "")
			return
		}
		if !member {
			uierrors.Forbidden(w, "Only members can see who belongs to this group.")
			return
		}
	}

	members, err := groupmembers.List(ctx, h.DB, g.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list group members failed", err, "")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, membersResponse{GroupID: g.ID.Hex(), Members: members})
}

// HandleSetMemberRole handles POST /groups/{id}/members/{userID}/role with
// form field role=MEMBER|ADMIN. The last admin cannot be demoted.
func (h *Handler) HandleSetMemberRole(w http.ResponseWriter, r *http.Request) {
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
	if !h.requireGroupAdmin(ctx, w, sc, g) {
		return
	}

	targetID, ok := inputval.ObjectIDParam(r, "userID")
	if !ok {
		uierrors.NotFound(w, "Member")
		return
	}
	newRole, ok := models.ParseGroupRole(r.FormValue("role"))
	if !ok {
		uierrors.BadRequest(w, "Role must be MEMBER or ADMIN.")
		return
	}

	oldRole, err := h.Members.ChangeRole(ctx, g.ID, targetID, newRole)
	switch {
	case errors.Is(err, membershipstore.ErrNotMember):
		uierrors.NotFound(w, "Member")
		return
	case errors.Is(err, membershipstore.ErrLastAdmin):
		uierrors.Write(w, http.StatusConflict, "last_admin", "A group must keep at least one administrator.")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "set member role failed", err, "")
		return
	}

	h.Log.Info("group member role changed",
		zap.String("group_id", g.ID.Hex()),
		zap.String("target_user_id", targetID.Hex()),
		zap.String("role", string(newRole)),
		zap.String("by_user_id", sc.UserID.Hex()))
	if oldRole != newRole {
		h.Audit.MemberRoleChanged(ctx, r, sc.UserID, targetID, g.ID, string(oldRole), string(newRole))
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"user_id": targetID.Hex(), "role": string(newRole)})
}

// HandleAddMember handles POST /groups/{id}/members (group admins only).
// The account is named by form field email or user_id; role defaults to
// MEMBER. This is how members reach a hidden group. Only active, approved
// accounts can be added.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.Gates.RequireUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		uierrors.BadRequest(w, "Invalid form data.")
		return
	}

	role := models.GroupRoleMember
	if raw := r.PostFormValue("role"); raw != "" {
		parsed, ok := models.ParseGroupRole(raw)
		if !ok {
			uierrors.BadRequest(w, "Role must be MEMBER or ADMIN.")
			return
		}
		role = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, ok := h.loadGroup(ctx, w, r, sc)
	if !ok {
		return
	}
	if !h.requireGroupAdmin(ctx, w, sc, g) {
		return
	}

	target, ok := h.lookupAccount(ctx, w, r)
	if !ok {
		return
	}
	if !target.Active || target.Pending() {
		uierrors.Write(w, http.StatusBadRequest, "account_inactive", "Only active accounts can be added to a group.")
		return
	}

	err := h.Members.Add(ctx, g.ID, target.ID, role)
	if errors.Is(err, membershipstore.ErrDuplicateMembership) {
		uierrors.Conflict(w, "That user is already a member of this group.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "add group member failed", err, "")
		return
	}

	h.Log.Info("group member added",
		zap.String("group_id", g.ID.Hex()),
		zap.String("target_user_id", target.ID.Hex()),
		zap.String("by_user_id", sc.UserID.Hex()))
	h.Audit.MemberAddedToGroup(ctx, r, sc.UserID, target.ID, g.ID, string(role))
	uierrors.WriteJSON(w, http.StatusCreated, map[string]string{"user_id": target.ID.Hex(), "role": string(role)})
}

// lookupAccount resolves the email or user_id form field. Unknown accounts
// are 404.
func (h *Handler) lookupAccount(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.User, bool) {
	var (
		u   models.User
		err error
	)
	switch {
	case r.PostFormValue("user_id") != "":
		id, perr := primitive.ObjectIDFromHex(r.PostFormValue("user_id"))
		if perr != nil {
			uierrors.NotFound(w, "User")
			return models.User{}, false
		}
		u, err = h.Users.GetByID(ctx, id)
	case r.PostFormValue("email") != "":
		u, err = h.Users.GetByEmail(ctx, normalize.Email(r.PostFormValue("email")))
	default:
		uierrors.BadRequest(w, "Email or user_id is required.")
		return models.User{}, false
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.NotFound(w, "User")
		return models.User{}, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user failed", err, "")
		return models.User{}, false
	}
	return u, true
}

// HandleRemoveMember handles POST /groups/{id}/members/{userID}/remove
// (group admins only). The member's subscriptions to the group's events go
// with the membership. The last admin cannot be removed.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
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
	if !h.requireGroupAdmin(ctx, w, sc, g) {
		return
	}

	targetID, ok := inputval.ObjectIDParam(r, "userID")
	if !ok {
		uierrors.NotFound(w, "Member")
		return
	}

	_, err := h.Members.RemoveMember(ctx, g.ID, targetID)
	switch {
	case errors.Is(err, membershipstore.ErrNotMember):
		uierrors.NotFound(w, "Member")
		return
	case errors.Is(err, membershipstore.ErrLastAdmin):
		uierrors.Write(w, http.StatusConflict, "last_admin", "A group must keep at least one administrator.")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "remove group member failed", err, "")
		return
	}
	if err := h.dropGroupSubscriptions(ctx, g.ID, targetID); err != nil {
		h.ErrLog.LogServerError(w, r, "drop subscriptions failed", err, "")
		return
	}

	h.Log.Info("group member removed",
		zap.String("group_id", g.ID.Hex()),
		zap.String("target_user_id", targetID.Hex()),
		zap.String("by_user_id", sc.UserID.Hex()))
	h.Audit.MemberRemovedFromGroup(ctx, r, sc.UserID, targetID, g.ID)
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
