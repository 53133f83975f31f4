// internal/app/system/authz/authz.go
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrAccountNotFound is returned by an AccountLoader when the id does not
// resolve to a stored account.
var ErrAccountNotFound = errors.New("account not found")

// SessionContext is the caller as the store currently sees it. The gate
// builds a fresh one on every call; nothing here is read from the cookie
// except the id.
type SessionContext struct {
	UserID primitive.ObjectID
	Email  string
	Name   string
	Role   models.Role
	Active bool
}

// IsAdmin reports whether the caller holds the platform ADMIN role.
func (sc SessionContext) IsAdmin() bool {
	return sc.Role == models.RoleAdmin
}

// AccountLoader reads the authoritative role and active flag for a user.
type AccountLoader interface {
	LoadAccount(ctx context.Context, id primitive.ObjectID) (SessionContext, error)
}

// Requirement describes what a protected operation needs from its caller.
// The zero value requires an active account with at least the USER role.
type Requirement struct {
	MinRole       models.Role
	AllowInactive bool
}

// AdminOnly is the requirement used by the admin console.
var AdminOnly = Requirement{MinRole: models.RoleAdmin}

func (req Requirement) minRole() models.Role {
	if req.MinRole == "" {
		return models.RoleUser
	}
	return req.MinRole
}

// Gate enforces a minimum role at the top of protected operations.
type Gate struct {
	accounts AccountLoader
}

// NewGate returns a gate that re-reads accounts through loader.
func NewGate(loader AccountLoader) *Gate {
	return &Gate{accounts: loader}
}

// Require resolves caller against the store and checks req.
//
// Failures are *Error values with a Kind: a missing or unresolvable caller is
// AuthenticationRequired; an inactive account is AccountDeactivated unless
// req.AllowInactive is set (checked before the role); a role below
// req.MinRole is InsufficientPermissions. Store errors other than
// ErrAccountNotFound are returned wrapped and unclassified.
func (g *Gate) Require(ctx context.Context, caller *auth.SessionUser, req Requirement) (SessionContext, error) {
	if caller == nil || caller.ID == "" {
		return SessionContext{}, ErrAuthenticationRequired
	}
	uid, err := primitive.ObjectIDFromHex(caller.ID)
	if err != nil {
		return SessionContext{}, ErrAuthenticationRequired
	}

	sc, err := g.accounts.LoadAccount(ctx, uid)
	if errors.Is(err, ErrAccountNotFound) {
		return SessionContext{}, ErrAuthenticationRequired
	}
	if err != nil {
		return SessionContext{}, fmt.Errorf("load account %s: %w", uid.Hex(), err)
	}

	if !sc.Active && !req.AllowInactive {
		return SessionContext{}, ErrAccountDeactivated
	}

	min := req.minRole()
	if !sc.Role.AtLeast(min) {
		return SessionContext{}, &Error{
			Kind:     KindInsufficientPermissions,
			Required: min,
			Actual:   sc.Role,
		}
	}
	return sc, nil
}
