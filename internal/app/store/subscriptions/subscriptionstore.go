// internal/app/store/subscriptions/subscriptionstore.go
package subscriptionstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/eventhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicateSubscription = errors.New("already subscribed to this event")
	ErrNotSubscribed         = errors.New("not subscribed to this event")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("event_subscriptions")}
}

func (s *Store) Add(ctx context.Context, eventID, userID primitive.ObjectID) error {
	sub := models.EventSubscription{
		ID:        primitive.NewObjectID(),
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, sub); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateSubscription
		}
		return err
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, eventID, userID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"event_id": eventID, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotSubscribed
	}
	return nil
}

func (s *Store) IsSubscribed(ctx context.Context, eventID, userID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx,
		bson.M{"event_id": eventID, "user_id": userID},
		options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountByEvent returns the number of subscribers of an event.
func (s *Store) CountByEvent(ctx context.Context, eventID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"event_id": eventID})
}

// EventIDsForUser lists the events userID is subscribed to.
func (s *Store) EventIDsForUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	raw, err := s.c.Distinct(ctx, "event_id", bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, v := range raw {
		if oid, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, oid)
		}
	}
	return ids, nil
}

// DeleteByEvents removes subscriptions to any of eventIDs.
func (s *Store) DeleteByEvents(ctx context.Context, eventIDs []primitive.ObjectID) (int64, error) {
	if len(eventIDs) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"event_id": bson.M{"$in": eventIDs}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByUser removes all subscriptions of a user.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByUserInEvents removes userID's subscriptions to eventIDs. Used when
// a member leaves a group.
func (s *Store) DeleteByUserInEvents(ctx context.Context, userID primitive.ObjectID, eventIDs []primitive.ObjectID) (int64, error) {
	if len(eventIDs) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID, "event_id": bson.M{"$in": eventIDs}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
