// Package groupmembers lists the members of one group joined with their
// user accounts.
package groupmembers

import (
	"context"
	"time"

	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Member is one row of a group's member list.
type Member struct {
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	FullName string             `bson:"full_name" json:"full_name"`
	Email    string             `bson:"email" json:"email"`
	Role     models.GroupRole   `bson:"role" json:"role"`
	JoinedAt time.Time          `bson:"joined_at" json:"joined_at"`
}

// List returns the members of groupID, group admins first, then by name.
// Memberships whose user no longer exists are skipped.
func List(ctx context.Context, db *mongo.Database, groupID primitive.ObjectID) ([]Member, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	pipe := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"group_id": groupID}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "user_id",
			"foreignField": "_id",
			"as":           "user",
		}}},
		{{Key: "$unwind", Value: "$user"}},
		{{Key: "$addFields", Value: bson.M{
			"role_rank": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$role", string(models.GroupRoleAdmin)}}, 0, 1,
			}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "role_rank", Value: 1},
			{Key: "user.full_name_ci", Value: 1},
			{Key: "user._id", Value: 1},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":       0,
			"user_id":   1,
			"role":      1,
			"joined_at": 1,
			"full_name": "$user.full_name",
			"email":     "$user.email",
		}}},
	}

	cur, err := db.Collection("group_memberships").Aggregate(ctx, pipe)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []Member{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
