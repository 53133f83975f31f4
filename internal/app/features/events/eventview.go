// internal/app/features/events/eventview.go
package events

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	"github.com/dalemusser/eventhub/internal/app/store/queries/eventqueries"
	"github.com/dalemusser/eventhub/internal/app/system/authz"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
)

type detailResponse struct {
	eventqueries.Item
	CanManage bool `json:"can_manage"`
}

// detail fills in the group name and subscription state for acc.
func (h *Handler) detail(ctx context.Context, sc authz.SessionContext, acc eventAccess) (detailResponse, error) {
	ev := acc.Event
	resp := detailResponse{
		Item: eventqueries.Item{
			ID:          ev.ID,
			GroupID:     ev.GroupID,
			Title:       ev.Title,
			Description: ev.Description,
			Location:    ev.Location,
			StartDate:   ev.StartDate,
			EndDate:     ev.EndDate,
			Visible:     ev.Visible,
			UpdatedAt:   ev.UpdatedAt,
		},
		CanManage: acc.CanManage,
	}

	g, err := h.Groups.GetByID(ctx, ev.GroupID)
	switch {
	case err == nil:
		resp.GroupName = g.Name
	case !errors.Is(err, mongo.ErrNoDocuments):
		return detailResponse{}, err
	}

	n, err := h.Subscriptions.CountByEvent(ctx, ev.ID)
	if err != nil {
		return detailResponse{}, err
	}
	resp.SubscriberCount = int(n)

	resp.Subscribed, err = h.Subscriptions.IsSubscribed(ctx, ev.ID, sc.UserID)
	if err != nil {
		return detailResponse{}, err
	}
	return resp, nil
}

// ServeEventView handles GET /events/{id}.
func (h *Handler) ServeEventView(w http.ResponseWriter, r *http.Request) {
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
	resp, err := h.detail(ctx, sc, acc)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load event detail failed", err, "")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, resp)
}
