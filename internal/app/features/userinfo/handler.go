// internal/app/features/userinfo/handler.go
package userinfo

import (
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"github.com/dalemusser/eventhub/internal/app/system/authz"
	"github.com/dalemusser/eventhub/internal/app/system/feedtoken"
	"github.com/dalemusser/eventhub/internal/app/system/gates"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves the signed-in user's own account data.
type Handler struct {
	Gates   *gates.Gatekeeper
	Feeds   *feedtoken.Manager // nil when feed tokens are not configured
	BaseURL string
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger
}

func NewHandler(gk *gates.Gatekeeper, feeds *feedtoken.Manager, baseURL string, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Gates:   gk,
		Feeds:   feeds,
		BaseURL: strings.TrimRight(baseURL, "/"),
		ErrLog:  errLog,
		Log:     logger,
	}
}

type meResponse struct {
	ID      string      `json:"id"`
	Email   string      `json:"email"`
	Name    string      `json:"name"`
	Role    models.Role `json:"role"`
	Active  bool        `json:"active"`
	IsAdmin bool        `json:"is_admin"`

	// CSRFToken must accompany POSTs, in the X-CSRF-Token header or the
	// csrf_token form field.
	CSRFToken string `json:"csrf_token,omitempty"`
}

// ServeMe returns the caller as the store currently sees it. Inactive
// accounts may call it so the client can show why nothing else works.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.Gates.Require(w, r, authz.Requirement{AllowInactive: true})
	if !ok {
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, meResponse{
		ID:      sc.UserID.Hex(),
		Email:   sc.Email,
		Name:    sc.Name,
		Role:    sc.Role,
		Active:  sc.Active,
		IsAdmin: sc.IsAdmin(),

		CSRFToken: auth.CSRFToken(r),
	})
}

type tokenResponse struct {
	Token     string     `json:"token"`
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ServeCalendarToken issues a feed token for the caller's subscribed events.
func (h *Handler) ServeCalendarToken(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.Gates.RequireUser(w, r)
	if !ok {
		return
	}
	if h.Feeds == nil {
		uierrors.Write(w, http.StatusServiceUnavailable, "feeds_disabled", "Calendar feeds are not enabled.")
		return
	}

	token, exp, err := h.Feeds.Issue(sc.UserID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "issue feed token failed", err, "")
		return
	}
	resp := tokenResponse{
		Token: token,
		URL:   h.BaseURL + "/calendar/" + token + ".ics",
	}
	if !exp.IsZero() {
		resp.ExpiresAt = &exp
	}
	h.Log.Info("calendar feed token issued", zap.String("user_id", sc.UserID.Hex()))
	uierrors.WriteJSON(w, http.StatusOK, resp)
}
