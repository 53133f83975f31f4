// internal/app/features/groups/groupedit.go
package groups

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	groupstore "github.com/dalemusser/eventhub/internal/app/store/groups"
	"github.com/dalemusser/eventhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/eventhub/internal/app/system/inputval"
	"github.com/dalemusser/eventhub/internal/app/system/normalize"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// groupEditInput carries the fields of a partial update. Absent fields are
// empty and skip validation; a present but blank name is caught separately.
type groupEditInput struct {
	Name        string `label:"Name" validate:"omitempty,max=200"`
	Description string `label:"Description" validate:"omitempty,max=10000"`
}

// HandleEditGroup handles POST /groups/{id}/edit. Only fields present in
// the form are changed.
func (h *Handler) HandleEditGroup(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.Gates.RequireUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		uierrors.BadRequest(w, "Invalid form data.")
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

	in := groupEditInput{
		Name:        normalize.Name(r.PostFormValue("name")),
		Description: r.PostFormValue("description"),
	}
	if msg := inputval.Check(in); msg != "" {
		uierrors.BadRequest(w, msg)
		return
	}

	var upd groupstore.Update
	var changed []string
	if _, present := r.PostForm["name"]; present {
		if in.Name == "" {
			uierrors.BadRequest(w, "Name is required.")
			return
		}
		upd.Name = &in.Name
		changed = append(changed, "name")
	}
	if _, present := r.PostForm["description"]; present {
		desc := htmlsanitize.Description(in.Description)
		upd.Description = &desc
		changed = append(changed, "description")
	}
	if _, present := r.PostForm["visible"]; present {
		visible := normalize.Flag(r.PostFormValue("visible"))
		upd.Visible = &visible
		changed = append(changed, "visible")
	}

	err := h.Groups.Update(ctx, g.ID, upd)
	switch {
	case errors.Is(err, groupstore.ErrDuplicateGroupName):
		uierrors.Conflict(w, "A group with this name already exists.")
		return
	case errors.Is(err, groupstore.ErrNotFound):
		uierrors.NotFound(w, "Group")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "update group failed", err, "")
		return
	}

	updated, err := h.Groups.GetByID(ctx, g.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "reload group failed", err, "")
		return
	}
	h.Log.Info("group updated", zap.String("group_id", g.ID.Hex()), zap.String("user_id", sc.UserID.Hex()))
	h.Audit.GroupUpdated(ctx, r, sc.UserID, g.ID, strings.Join(changed, ","))

	// Platform admins can edit groups they are not members of; role is
	// then empty.
	role, _, err := h.Members.GroupRole(ctx, g.ID, sc.UserID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load membership failed", err, "")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, toResponse(updated, role, true))
}
