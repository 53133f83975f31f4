// internal/app/features/admin/actions.go
package admin

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	userstore "github.com/dalemusser/eventhub/internal/app/store/users"
	"github.com/dalemusser/eventhub/internal/app/system/authz"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.uber.org/zap"
)

// userAction is the shape shared by the approve, activate, deactivate and
// role endpoints: gate, load the target, apply, reload, respond.
func (h *Handler) userAction(w http.ResponseWriter, r *http.Request, name string, apply func(ctx context.Context, sc authz.SessionContext, u models.User) bool) {
	sc, ok := h.Gates.RequireAdmin(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, ok := h.loadTarget(ctx, w, r)
	if !ok {
		return
	}
	if !apply(ctx, sc, u) {
		return
	}

	updated, err := h.Users.GetByID(ctx, u.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "reload user failed", err, "")
		return
	}
	h.Log.Info("admin user action",
		zap.String("action", name),
		zap.String("target_user_id", u.ID.Hex()),
		zap.String("by_user_id", sc.UserID.Hex()))
	uierrors.WriteJSON(w, http.StatusOK, toResponse(updated))
}

func (h *Handler) storeFailed(w http.ResponseWriter, r *http.Request, msg string, err error) bool {
	if errors.Is(err, userstore.ErrNotFound) {
		uierrors.NotFound(w, "User")
		return false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, msg, err, "")
		return false
	}
	return true
}

func refuseSelf(w http.ResponseWriter, sc authz.SessionContext, u models.User, msg string) bool {
	if sc.UserID == u.ID {
		uierrors.Write(w, http.StatusConflict, "self_action", msg)
		return true
	}
	return false
}

// HandleApprove handles POST /admin/users/{id}/approve. A pending account
// becomes active; approving an approved account only re-activates it.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, "approve", func(ctx context.Context, sc authz.SessionContext, u models.User) bool {
		if !h.storeFailed(w, r, "approve user failed", h.Users.Approve(ctx, u.ID)) {
			return false
		}
		h.Audit.UserApproved(ctx, r, sc.UserID, u.ID)
		return true
	})
}

// HandleActivate handles POST /admin/users/{id}/activate. Pending accounts
// must be approved instead.
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, "activate", func(ctx context.Context, sc authz.SessionContext, u models.User) bool {
		if u.Pending() {
			uierrors.Write(w, http.StatusConflict, "pending", "Approve this account before activating it.")
			return false
		}
		if !h.storeFailed(w, r, "activate user failed", h.Users.SetActive(ctx, u.ID, true)) {
			return false
		}
		h.Audit.UserEnabled(ctx, r, sc.UserID, u.ID)
		return true
	})
}

// HandleDeactivate handles POST /admin/users/{id}/deactivate. The caller
// cannot deactivate themselves or the last active admin.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, "deactivate", func(ctx context.Context, sc authz.SessionContext, u models.User) bool {
		if refuseSelf(w, sc, u, "You can't deactivate your own account.") {
			return false
		}
		if !h.guardLastAdmin(ctx, w, r, u) {
			return false
		}
		if !h.storeFailed(w, r, "deactivate user failed", h.Users.SetActive(ctx, u.ID, false)) {
			return false
		}
		h.Audit.UserDisabled(ctx, r, sc.UserID, u.ID)
		return true
	})
}

// HandleSetRole handles POST /admin/users/{id}/role with role=USER|ADMIN.
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	role, ok := models.ParseRole(r.FormValue("role"))
	if !ok {
		if _, ok := h.Gates.RequireAdmin(w, r); ok {
			uierrors.BadRequest(w, "Role must be USER or ADMIN.")
		}
		return
	}

	h.userAction(w, r, "set_role", func(ctx context.Context, sc authz.SessionContext, u models.User) bool {
		if role == u.Role {
			return true
		}
		if role != models.RoleAdmin {
			if refuseSelf(w, sc, u, "You can't remove your own admin role.") {
				return false
			}
			if !h.guardLastAdmin(ctx, w, r, u) {
				return false
			}
		}
		if !h.storeFailed(w, r, "set user role failed", h.Users.SetRole(ctx, u.ID, role)) {
			return false
		}
		h.Audit.UserRoleChanged(ctx, r, sc.UserID, u.ID, string(u.Role), string(role))
		return true
	})
}

// HandleDelete handles POST /admin/users/{id}/delete. The account's
// memberships, subscriptions and login history go with it.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.Gates.RequireAdmin(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	u, ok := h.loadTarget(ctx, w, r)
	if !ok {
		return
	}
	if refuseSelf(w, sc, u, "You can't delete your own account.") {
		return
	}
	if !h.guardLastAdmin(ctx, w, r, u) {
		return
	}

	subs, err := h.Subscriptions.DeleteByUser(ctx, u.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete user subscriptions failed", err, "")
		return
	}
	mems, err := h.Members.DeleteByUser(ctx, u.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete user memberships failed", err, "")
		return
	}
	if _, err := h.Logins.DeleteByUser(ctx, u.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "delete user login history failed", err, "")
		return
	}
	if _, err := h.Users.Delete(ctx, u.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "delete user failed", err, "")
		return
	}

	h.Log.Info("user deleted",
		zap.String("target_user_id", u.ID.Hex()),
		zap.String("by_user_id", sc.UserID.Hex()),
		zap.Int64("subscriptions", subs),
		zap.Int64("memberships", mems))
	h.Audit.UserDeleted(ctx, r, sc.UserID, u.ID, u.Email)
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": u.ID.Hex()})
}
