package authz

import (
	"fmt"

	"github.com/dalemusser/eventhub/internal/domain/models"
)

// Kind classifies gate failures so handlers can map them to responses.
type Kind int

const (
	KindAuthenticationRequired Kind = iota + 1
	KindAccountDeactivated
	KindInsufficientPermissions
)

func (k Kind) String() string {
	switch k {
	case KindAuthenticationRequired:
		return "authentication required"
	case KindAccountDeactivated:
		return "account deactivated"
	case KindInsufficientPermissions:
		return "insufficient permissions"
	default:
		return "unknown"
	}
}

// Error is returned by Gate.Require. Required and Actual are only set for
// KindInsufficientPermissions.
type Error struct {
	Kind     Kind
	Required models.Role
	Actual   models.Role
}

func (e *Error) Error() string {
	if e.Kind == KindInsufficientPermissions {
		return fmt.Sprintf("%s: requires %s, have %s", e.Kind, e.Required, roleOrNone(e.Actual))
	}
	return e.Kind.String()
}

// Is matches on Kind so errors.Is works against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrAuthenticationRequired  = &Error{Kind: KindAuthenticationRequired}
	ErrAccountDeactivated      = &Error{Kind: KindAccountDeactivated}
	ErrInsufficientPermissions = &Error{Kind: KindInsufficientPermissions}
)

func roleOrNone(r models.Role) string {
	if r == "" {
		return "none"
	}
	return string(r)
}
