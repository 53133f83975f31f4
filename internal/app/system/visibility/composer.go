package visibility

import (
	"context"
	"fmt"

	"github.com/dalemusser/eventhub/internal/app/system/authz"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Context is what the composer needs to know about a caller.
type Context struct {
	UserID        primitive.ObjectID
	Role          models.Role
	Authenticated bool
}

// For builds a Context from a gated caller.
func For(sc authz.SessionContext) Context {
	return Context{UserID: sc.UserID, Role: sc.Role, Authenticated: !sc.UserID.IsZero()}
}

// Anonymous is the context of a caller with no session.
func Anonymous() Context {
	return Context{}
}

func (vc Context) isAdmin() bool {
	return vc.Authenticated && vc.Role == models.RoleAdmin
}

// GroupFilter matches the groups vc may discover: every group for an admin,
// otherwise visible groups plus groups vc is a member of.
func GroupFilter(vc Context) Predicate {
	switch {
	case !vc.Authenticated:
		return Never{}
	case vc.isAdmin():
		return Always{}
	}
	return AnyOf(VisibleFlag{}, HasMembership{UserID: vc.UserID})
}

// EventFilter answers only "is this event discoverable". It does not look at
// the parent group; use EventScope when listing events.
func EventFilter(vc Context) Predicate {
	switch {
	case !vc.Authenticated:
		return Never{}
	case vc.isAdmin():
		return Always{}
	}
	return VisibleFlag{}
}

// EventScope is EventFilter constrained to events whose group passes
// GroupFilter.
func EventScope(vc Context) Predicate {
	return AllOf(EventFilter(vc), InParentGroup(GroupFilter(vc)))
}

// GroupLookup reads the two facts CanSeeGroup needs.
type GroupLookup interface {
	// GroupVisible returns the group's visible flag. found is false when the
	// group does not exist.
	GroupVisible(ctx context.Context, groupID primitive.ObjectID) (visible bool, found bool, err error)
	IsMember(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error)
}

// CanSeeGroup reports whether vc may see groupID. Lookup errors are returned,
// never treated as visible.
func CanSeeGroup(ctx context.Context, lookup GroupLookup, vc Context, groupID primitive.ObjectID) (bool, error) {
	if !vc.Authenticated {
		return false, nil
	}
	if vc.isAdmin() {
		return true, nil
	}

	visible, found, err := lookup.GroupVisible(ctx, groupID)
	if err != nil {
		return false, fmt.Errorf("group visibility %s: %w", groupID.Hex(), err)
	}
	if !found {
		return false, nil
	}
	if visible {
		return true, nil
	}

	member, err := lookup.IsMember(ctx, groupID, vc.UserID)
	if err != nil {
		return false, fmt.Errorf("group membership %s: %w", groupID.Hex(), err)
	}
	return member, nil
}

// CanSeeEvent reports whether vc may see ev: admins always, others only when
// the event is visible and its group passes CanSeeGroup.
func CanSeeEvent(ctx context.Context, lookup GroupLookup, vc Context, ev models.Event) (bool, error) {
	if !vc.Authenticated {
		return false, nil
	}
	if vc.isAdmin() {
		return true, nil
	}
	if !ev.Visible {
		return false, nil
	}
	return CanSeeGroup(ctx, lookup, vc, ev.GroupID)
}
