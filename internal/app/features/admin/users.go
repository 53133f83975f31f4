// internal/app/features/admin/users.go
package admin

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	userstore "github.com/dalemusser/eventhub/internal/app/store/users"
	"github.com/dalemusser/eventhub/internal/app/system/normalize"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

const (
	defaultListLimit = 200
	maxListLimit     = 1000
)

type usersResponse struct {
	Status string         `json:"status,omitempty"`
	Items  []userResponse `json:"items"`
}

// ServeUsers handles GET /admin/users?status=pending|active|inactive&q=.
func (h *Handler) ServeUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Gates.RequireAdmin(w, r); !ok {
		return
	}

	f := userstore.ListFilter{
		Status: strings.ToLower(normalize.QueryParam(query.Get(r, "status"))),
		Query:  normalize.QueryParam(query.Get(r, "q")),
		Limit:  defaultListLimit,
	}
	switch f.Status {
	case "", userstore.StatusPending, userstore.StatusActive, userstore.StatusInactive:
	default:
		uierrors.BadRequest(w, "Status must be pending, active or inactive.")
		return
	}
	if n, err := strconv.ParseInt(query.Get(r, "limit"), 10, 64); err == nil && n > 0 {
		f.Limit = min(n, maxListLimit)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users, err := h.Users.List(ctx, f)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list users failed", err, "")
		return
	}
	out := usersResponse{Status: f.Status, Items: make([]userResponse, 0, len(users))}
	for _, u := range users {
		out.Items = append(out.Items, toResponse(u))
	}
	uierrors.WriteJSON(w, http.StatusOK, out)
}

const recentLogins = 10

type userDetail struct {
	userResponse
	RecentLogins []models.LoginRecord `json:"recent_logins"`
}

// ServeUser handles GET /admin/users/{id}, including the account's most
// recent sign-ins.
func (h *Handler) ServeUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Gates.RequireAdmin(w, r); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, ok := h.loadTarget(ctx, w, r)
	if !ok {
		return
	}
	logins, err := h.Logins.Recent(ctx, u.ID, recentLogins)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load login history failed", err, "")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, userDetail{userResponse: toResponse(u), RecentLogins: logins})
}
