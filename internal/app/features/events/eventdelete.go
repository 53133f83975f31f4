// internal/app/features/events/eventdelete.go
package events

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// HandleDeleteEvent handles POST /events/{id}/delete. Subscriptions to the
// event are removed first.
func (h *Handler) HandleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.Gates.RequireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	acc, ok := h.loadEvent(ctx, w, r, sc)
	if !ok {
		return
	}
	if !acc.CanManage {
		uierrors.Forbidden(w, "Only group administrators can delete events.")
		return
	}

	if _, err := h.Subscriptions.DeleteByEvents(ctx, []primitive.ObjectID{acc.Event.ID}); err != nil {
		h.ErrLog.LogServerError(w, r, "delete event subscriptions failed", err, "")
		return
	}
	if _, err := h.Events.Delete(ctx, acc.Event.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "delete event failed", err, "")
		return
	}

	h.Log.Info("event deleted", zap.String("event_id", acc.Event.ID.Hex()), zap.String("user_id", sc.UserID.Hex()))
	h.Audit.EventDeleted(ctx, r, sc.UserID, acc.Event.ID, acc.Event.GroupID, acc.Event.Title)
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
