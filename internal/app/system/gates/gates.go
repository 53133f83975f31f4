// Package gates runs authz.Gate at the top of HTTP handlers.
//
// Route middleware (auth.RequireSignedIn) only checks that a cookie exists.
// Handlers still call a gate, which re-reads the account so a demotion or
// deactivation takes effect on the next request. Resource checks (is this
// caller an admin of this group, can they see this event) come after the
// gate and use authz.GroupAdmins and the visibility package.
package gates

import (
	"net/http"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"github.com/dalemusser/eventhub/internal/app/system/authz"
)

// Gatekeeper pairs a gate with the logger used for store failures.
type Gatekeeper struct {
	Gate   *authz.Gate
	ErrLog *uierrors.ErrorLogger
}

func New(gate *authz.Gate, errLog *uierrors.ErrorLogger) *Gatekeeper {
	return &Gatekeeper{Gate: gate, ErrLog: errLog}
}

// Require checks req for the request's caller. On failure it has already
// written the response and ok is false.
func (g *Gatekeeper) Require(w http.ResponseWriter, r *http.Request, req authz.Requirement) (sc authz.SessionContext, ok bool) {
	return g.RequireFor(w, r, auth.Caller(r), req)
}

// RequireFor is Require for a caller identified some other way than the
// session cookie, such as a calendar feed token.
func (g *Gatekeeper) RequireFor(w http.ResponseWriter, r *http.Request, caller *auth.SessionUser, req authz.Requirement) (authz.SessionContext, bool) {
	sc, err := g.Gate.Require(r.Context(), caller, req)
	if err == nil {
		return sc, true
	}
	if !uierrors.WriteAuthz(w, err) {
		g.ErrLog.LogServerError(w, r, "authorization check failed", err, "")
	}
	return authz.SessionContext{}, false
}

// RequireUser is Require with the default requirement: signed in, active.
func (g *Gatekeeper) RequireUser(w http.ResponseWriter, r *http.Request) (authz.SessionContext, bool) {
	return g.Require(w, r, authz.Requirement{})
}

// RequireAdmin requires the platform ADMIN role.
func (g *Gatekeeper) RequireAdmin(w http.ResponseWriter, r *http.Request) (authz.SessionContext, bool) {
	return g.Require(w, r, authz.AdminOnly)
}
