// internal/app/features/events/eventedit.go
package events

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	eventstore "github.com/dalemusser/eventhub/internal/app/store/events"
	"github.com/dalemusser/eventhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/eventhub/internal/app/system/inputval"
	"github.com/dalemusser/eventhub/internal/app/system/normalize"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// HandleEditEvent handles POST /events/{id}/edit. Only fields present in the
// form are changed; the stored range is checked against the new one.
func (h *Handler) HandleEditEvent(w http.ResponseWriter, r *http.Request) {
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

	acc, ok := h.loadEvent(ctx, w, r, sc)
	if !ok {
		return
	}
	if !acc.CanManage {
		uierrors.Forbidden(w, "Only group administrators can edit events.")
		return
	}

	in := readEditForm(r)
	if msg := inputval.Check(in); msg != "" {
		uierrors.BadRequest(w, msg)
		return
	}

	var upd eventstore.Update
	var changed []string
	if present(r, "title") {
		if in.Title == "" {
			uierrors.BadRequest(w, "Title is required.")
			return
		}
		upd.Title = &in.Title
		changed = append(changed, "title")
	}
	if present(r, "description") {
		desc := htmlsanitize.Description(in.Description)
		upd.Description = &desc
		changed = append(changed, "description")
	}
	if present(r, "location") {
		upd.Location = &in.Location
		changed = append(changed, "location")
	}
	if present(r, "start") {
		t, err := parseTime("Start", r.PostFormValue("start"))
		if err != nil {
			uierrors.BadRequest(w, err.Error())
			return
		}
		upd.StartDate = &t
		changed = append(changed, "start")
	}
	if present(r, "end") {
		t, err := parseTime("End", r.PostFormValue("end"))
		if err != nil {
			uierrors.BadRequest(w, err.Error())
			return
		}
		upd.EndDate = &t
		changed = append(changed, "end")
	}
	if present(r, "visible") {
		v := normalize.Flag(r.PostFormValue("visible"))
		upd.Visible = &v
		changed = append(changed, "visible")
	}

	err := h.Events.Update(ctx, acc.Event.ID, upd)
	switch {
	case errors.Is(err, eventstore.ErrInvalidRange):
		uierrors.BadRequest(w, "End must not be before the start.")
		return
	case errors.Is(err, eventstore.ErrNotFound):
		uierrors.NotFound(w, "Event")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "update event failed", err, "")
		return
	}

	ev, err := h.Events.GetByID(ctx, acc.Event.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "reload event failed", err, "")
		return
	}
	h.Log.Info("event updated", zap.String("event_id", ev.ID.Hex()), zap.String("user_id", sc.UserID.Hex()))
	h.Audit.EventUpdated(ctx, r, sc.UserID, ev.ID, ev.GroupID, strings.Join(changed, ","))

	acc.Event = ev
	resp, err := h.detail(ctx, sc, acc)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load event detail failed", err, "")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, resp)
}
