// internal/app/features/events/eventnew.go
package events

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	eventstore "github.com/dalemusser/eventhub/internal/app/store/events"
	"github.com/dalemusser/eventhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/eventhub/internal/app/system/inputval"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/eventhub/internal/app/system/visibility"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.uber.org/zap"
)

// HandleCreateEvent handles POST /groups/{id}/events (group admins only).
func (h *Handler) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
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

	gid, ok := inputval.ObjectIDParam(r, "id")
	if !ok {
		uierrors.NotFound(w, "Group")
		return
	}
	canSee, err := visibility.CanSeeGroup(ctx, h.Lookup, visibility.For(sc), gid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "group visibility check failed", err, "")
		return
	}
	if !canSee {
		uierrors.NotFound(w, "Group")
		return
	}
	if !h.Admins.CallerAdministersGroup(ctx, sc, gid) {
		uierrors.Forbidden(w, "Only group administrators can create events.")
		return
	}

	in, err := readCreateForm(r)
	if err != nil {
		uierrors.BadRequest(w, err.Error())
		return
	}
	if msg := inputval.Check(in); msg != "" {
		uierrors.BadRequest(w, msg)
		return
	}

	ev, err := h.Events.Create(ctx, models.Event{
		GroupID:     gid,
		Title:       in.Title,
		Description: htmlsanitize.Description(in.Description),
		Location:    in.Location,
		StartDate:   in.Start,
		EndDate:     in.End,
		Visible:     formVisible(r),
		CreatedBy:   sc.UserID,
	})
	if errors.Is(err, eventstore.ErrInvalidRange) {
		uierrors.BadRequest(w, "End must not be before the start.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create event failed", err, "")
		return
	}

	h.Log.Info("event created",
		zap.String("event_id", ev.ID.Hex()),
		zap.String("group_id", gid.Hex()),
		zap.String("user_id", sc.UserID.Hex()))
	h.Audit.EventCreated(ctx, r, sc.UserID, ev.ID, gid, ev.Title)

	resp, err := h.detail(ctx, sc, eventAccess{Event: ev, CanSee: ev.Visible, CanManage: true})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load event detail failed", err, "")
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, resp)
}
