package visibilityqueries

import (
	"context"
	"errors"

	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Lookup implements visibility.GroupLookup.
type Lookup struct {
	groups      *mongo.Collection
	memberships *mongo.Collection
}

func NewLookup(db *mongo.Database) *Lookup {
	return &Lookup{
		groups:      db.Collection("groups"),
		memberships: db.Collection("group_memberships"),
	}
}

func (l *Lookup) GroupVisible(ctx context.Context, groupID primitive.ObjectID) (bool, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var g struct {
		Visible bool `bson:"visible"`
	}
	proj := options.FindOne().SetProjection(bson.M{"visible": 1})
	err := l.groups.FindOne(ctx, bson.M{"_id": groupID}, proj).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return g.Visible, true, nil
}

func (l *Lookup) IsMember(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	n, err := l.memberships.CountDocuments(ctx,
		bson.M{"group_id": groupID, "user_id": userID},
		options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
