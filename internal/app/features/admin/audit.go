// internal/app/features/admin/audit.go
package admin

import (
	"context"
	"net/http"
	"strconv"
	"time"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	"github.com/dalemusser/eventhub/internal/app/store/audit"
	"github.com/dalemusser/eventhub/internal/app/system/normalize"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

type auditResponse struct {
	Total int64         `json:"total"`
	Items []audit.Event `json:"items"`
}

// ServeAudit handles GET /admin/audit. Optional filters: user_id, actor_id,
// group_id, category, event_type, since and until (RFC 3339), limit and
// offset. Newest events come first.
func (h *Handler) ServeAudit(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Gates.RequireAdmin(w, r); !ok {
		return
	}

	f := audit.QueryFilter{
		Category:  normalize.QueryParam(query.Get(r, "category")),
		EventType: normalize.QueryParam(query.Get(r, "event_type")),
		Limit:     defaultAuditLimit,
	}
	for param, dst := range map[string]**primitive.ObjectID{
		"user_id":  &f.UserID,
		"actor_id": &f.ActorID,
		"group_id": &f.GroupID,
	} {
		raw := query.Get(r, param)
		if raw == "" {
			continue
		}
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			uierrors.BadRequest(w, param+" must be an id.")
			return
		}
		*dst = &id
	}
	for param, dst := range map[string]**time.Time{
		"since": &f.Since,
		"until": &f.Until,
	} {
		raw := query.Get(r, param)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			uierrors.BadRequest(w, param+" must be an RFC 3339 time.")
			return
		}
		*dst = &t
	}
	if n, err := strconv.ParseInt(query.Get(r, "limit"), 10, 64); err == nil && n > 0 {
		f.Limit = min(n, maxAuditLimit)
	}
	if n, err := strconv.ParseInt(query.Get(r, "offset"), 10, 64); err == nil && n > 0 {
		f.Offset = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	total, err := h.AuditEvents.Count(ctx, f)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count audit events failed", err, "")
		return
	}
	items, err := h.AuditEvents.Query(ctx, f)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "query audit events failed", err, "")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, auditResponse{Total: total, Items: items})
}
