// internal/app/features/events/subscribe.go
package events

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	subscriptionstore "github.com/dalemusser/eventhub/internal/app/store/subscriptions"
	"github.com/dalemusser/eventhub/internal/app/system/inputval"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// HandleSubscribe handles POST /events/{id}/subscribe. The event must be
// discoverable to the caller and the caller must belong to its group.
func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.Gates.RequireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	acc, ok := h.loadEvent(ctx, w, r, sc)
	if !ok {
		return
	}
	if !acc.CanSee {
		// Group admins can open hidden events but not follow them.
		uierrors.Forbidden(w, "This event is not open for subscriptions.")
		return
	}
	_, member, err := h.Members.GroupRole(ctx, acc.Event.GroupID, sc.UserID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load membership failed", err, "")
		return
	}
	if !member {
		uierrors.Forbidden(w, "Join the group to subscribe to its events.")
		return
	}

	err = h.Subscriptions.Add(ctx, acc.Event.ID, sc.UserID)
	if errors.Is(err, subscriptionstore.ErrDuplicateSubscription) {
		uierrors.Conflict(w, "You are already subscribed to this event.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "subscribe failed", err, "")
		return
	}

	h.Log.Info("subscribed to event", zap.String("event_id", acc.Event.ID.Hex()), zap.String("user_id", sc.UserID.Hex()))
	uierrors.WriteJSON(w, http.StatusOK, map[string]any{"event_id": acc.Event.ID.Hex(), "subscribed": true})
}

// HandleUnsubscribe handles POST /events/{id}/unsubscribe. It works even
// when the event is no longer visible to the caller.
func (h *Handler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.Gates.RequireUser(w, r)
	if !ok {
		return
	}
	eid, ok := inputval.ObjectIDParam(r, "id")
	if !ok {
		uierrors.NotFound(w, "Event")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Subscriptions.Remove(ctx, eid, sc.UserID)
	if errors.Is(err, subscriptionstore.ErrNotSubscribed) {
		uierrors.Write(w, http.StatusBadRequest, "not_subscribed", "You are not subscribed to this event.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "unsubscribe failed", err, "")
		return
	}

	h.Log.Info("unsubscribed from event", zap.String("event_id", eid.Hex()), zap.String("user_id", sc.UserID.Hex()))
	uierrors.WriteJSON(w, http.StatusOK, map[string]any{"event_id": eid.Hex(), "subscribed": false})
}
