package testutil

import (
	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	membershipstore "github.com/dalemusser/eventhub/internal/app/store/memberships"
	userstore "github.com/dalemusser/eventhub/internal/app/store/users"
	"github.com/dalemusser/eventhub/internal/app/system/authz"
	"github.com/dalemusser/eventhub/internal/app/system/gates"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// NewGatekeeper returns a gatekeeper backed by the users collection of db.
func NewGatekeeper(db *mongo.Database) *gates.Gatekeeper {
	return gates.New(authz.NewGate(userstore.NewFetcher(db)), uierrors.NewErrorLogger(zap.NewNop()))
}

// NewGroupAdmins returns group-admin checks backed by db.
func NewGroupAdmins(db *mongo.Database) *authz.GroupAdmins {
	return authz.NewGroupAdmins(userstore.NewFetcher(db), membershipstore.New(db), zap.NewNop())
}
