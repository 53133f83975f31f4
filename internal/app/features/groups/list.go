// internal/app/features/groups/list.go
package groups

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	"github.com/dalemusser/eventhub/internal/app/store/queries/groupqueries"
	"github.com/dalemusser/eventhub/internal/app/system/normalize"
	"github.com/dalemusser/eventhub/internal/app/system/paging"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/eventhub/internal/app/system/visibility"
	"github.com/dalemusser/waffle/pantry/query"
)

// ServeGroupsList handles GET /groups?q=&mine=&limit=&after=.
func (h *Handler) ServeGroupsList(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.Gates.RequireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := groupqueries.List(ctx, h.DB, visibility.For(sc), groupqueries.Filter{
		Search:   normalize.QueryParam(query.Get(r, "q")),
		MineOnly: normalize.Flag(query.Get(r, "mine")),
	}, paging.FromRequest(r))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list groups failed", err, "")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, res)
}
