// internal/app/features/events/list.go
package events

import (
	"context"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	"github.com/dalemusser/eventhub/internal/app/store/queries/eventqueries"
	"github.com/dalemusser/eventhub/internal/app/system/normalize"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/eventhub/internal/app/system/visibility"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type listResponse struct {
	Items []eventqueries.Item `json:"items"`
}

// filterFromRequest reads q, group, upcoming, subscribed and limit. ok is
// false when group is not a valid id.
func filterFromRequest(r *http.Request) (eventqueries.Filter, bool) {
	f := eventqueries.Filter{
		Search:         normalize.QueryParam(query.Get(r, "q")),
		UpcomingOnly:   normalize.Flag(query.Get(r, "upcoming")),
		SubscribedOnly: normalize.Flag(query.Get(r, "subscribed")),
	}
	if gid := normalize.FilterID(query.Get(r, "group")); gid != "" {
		oid, err := primitive.ObjectIDFromHex(gid)
		if err != nil {
			return f, false
		}
		f.GroupID = oid
	}
	f.Limit, _ = strconv.Atoi(query.Get(r, "limit"))
	return f, true
}

// ServeEventsList handles GET /events?q=&group=&upcoming=&subscribed=.
func (h *Handler) ServeEventsList(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.Gates.RequireUser(w, r)
	if !ok {
		return
	}
	f, ok := filterFromRequest(r)
	if !ok {
		uierrors.BadRequest(w, "Invalid group id.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	items, err := eventqueries.List(ctx, h.DB, visibility.For(sc), f)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list events failed", err, "")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, listResponse{Items: items})
}
