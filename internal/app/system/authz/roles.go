// internal/app/system/authz/roles.go
package authz

import (
	"context"

	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MembershipLookup returns a user's role within a group. found is false when
// the user has no membership row for the group.
type MembershipLookup interface {
	GroupRole(ctx context.Context, groupID, userID primitive.ObjectID) (role models.GroupRole, found bool, err error)
}

// GroupAdmins answers "does this user administer this group". Platform
// admins administer every group.
//
// Both checks return false on any lookup failure and log a warning; they are
// permission predicates, not gates.
type GroupAdmins struct {
	accounts AccountLoader
	members  MembershipLookup
	log      *zap.Logger
}

func NewGroupAdmins(accounts AccountLoader, members MembershipLookup, logger *zap.Logger) *GroupAdmins {
	return &GroupAdmins{accounts: accounts, members: members, log: logger}
}

// UserAdministersGroup loads userID and checks its platform role, then its
// membership role in groupID. It is the entry point for callers that hold
// only an id and no gated session, such as jobs or token-authorized
// requests. HTTP handlers already have a SessionContext from the gate and
// use CallerAdministersGroup, which skips the account load.
func (g *GroupAdmins) UserAdministersGroup(ctx context.Context, userID, groupID primitive.ObjectID) bool {
	acct, err := g.accounts.LoadAccount(ctx, userID)
	if err != nil {
		g.deny("load account", userID, groupID, err)
		return false
	}
	return g.check(ctx, acct, groupID)
}

// CallerAdministersGroup uses the role the gate already resolved for caller.
func (g *GroupAdmins) CallerAdministersGroup(ctx context.Context, caller SessionContext, groupID primitive.ObjectID) bool {
	if caller.UserID.IsZero() {
		return false
	}
	return g.check(ctx, caller, groupID)
}

func (g *GroupAdmins) check(ctx context.Context, acct SessionContext, groupID primitive.ObjectID) bool {
	if acct.IsAdmin() {
		return true
	}
	role, found, err := g.members.GroupRole(ctx, groupID, acct.UserID)
	if err != nil {
		g.deny("membership lookup", acct.UserID, groupID, err)
		return false
	}
	return found && role == models.GroupRoleAdmin
}

func (g *GroupAdmins) deny(step string, userID, groupID primitive.ObjectID, err error) {
	g.log.Warn("group admin check failed, denying",
		zap.String("step", step),
		zap.String("user_id", userID.Hex()),
		zap.String("group_id", groupID.Hex()),
		zap.Error(err))
}
