package userstore

import (
	"context"
	"errors"

	"github.com/dalemusser/eventhub/internal/app/system/authz"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fetcher implements authz.AccountLoader. It reads role and active status
// straight from the users collection on every call.
type Fetcher struct {
	users *mongo.Collection
}

func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{users: db.Collection("users")}
}

// LoadAccount returns authz.ErrAccountNotFound when id does not exist.
func (f *Fetcher) LoadAccount(ctx context.Context, id primitive.ObjectID) (authz.SessionContext, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.User
	proj := options.FindOne().SetProjection(bson.M{
		"_id":       1,
		"email":     1,
		"full_name": 1,
		"role":      1,
		"active":    1,
	})
	err := f.users.FindOne(ctx, bson.M{"_id": id}, proj).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return authz.SessionContext{}, authz.ErrAccountNotFound
	}
	if err != nil {
		return authz.SessionContext{}, err
	}

	return authz.SessionContext{
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.FullName,
		Role:   u.Role,
		Active: u.Active,
	}, nil
}
