// internal/app/features/groups/groupnew.go
package groups

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	groupstore "github.com/dalemusser/eventhub/internal/app/store/groups"
	"github.com/dalemusser/eventhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/eventhub/internal/app/system/inputval"
	"github.com/dalemusser/eventhub/internal/app/system/normalize"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.uber.org/zap"
)

type groupInput struct {
	Name        string `json:"name" label:"Name" validate:"required,max=200"`
	Description string `json:"description" label:"Description" validate:"max=10000"`
}

// formVisible reads the visible field. A missing field means visible.
func formVisible(r *http.Request) bool {
	if _, present := r.PostForm["visible"]; !present {
		return true
	}
	return normalize.Flag(r.PostFormValue("visible"))
}

// HandleCreateGroup handles POST /groups. Any active user may create a
// group and becomes its first ADMIN member.
func (h *Handler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.Gates.RequireUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		uierrors.BadRequest(w, "Invalid form data.")
		return
	}

	in := groupInput{
		Name:        normalize.Name(r.PostFormValue("name")),
		Description: r.PostFormValue("description"),
	}
	if msg := inputval.Check(in); msg != "" {
		uierrors.BadRequest(w, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, err := h.Groups.Create(ctx, models.Group{
		Name:        in.Name,
		Description: htmlsanitize.Description(in.Description),
		Visible:     formVisible(r),
		CreatedBy:   sc.UserID,
	})
	if errors.Is(err, groupstore.ErrDuplicateGroupName) {
		uierrors.Conflict(w, "A group with this name already exists.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create group failed", err, "")
		return
	}

	if err := h.Members.Add(ctx, g.ID, sc.UserID, models.GroupRoleAdmin); err != nil {
		// A group without an admin could only be managed by platform admins.
		if _, delErr := h.Groups.Delete(ctx, g.ID); delErr != nil {
			h.Log.Error("rollback of group without admin failed",
				zap.String("group_id", g.ID.Hex()), zap.Error(delErr))
		}
		h.ErrLog.LogServerError(w, r, "add group creator as admin failed", err, "")
		return
	}

	h.Log.Info("group created",
		zap.String("group_id", g.ID.Hex()),
		zap.String("user_id", sc.UserID.Hex()))
	h.Audit.GroupCreated(ctx, r, sc.UserID, g.ID, g.Name)
	uierrors.WriteJSON(w, http.StatusCreated, toResponse(g, models.GroupRoleAdmin, true))
}
