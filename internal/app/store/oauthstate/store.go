// Package oauthstate keeps the one-time state tokens of the Google sign-in
// round trip. Expiry is enforced both by the TTL index on expires_at and by
// Consume itself, since the TTL monitor only runs once a minute.
package oauthstate

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// DefaultTTL is how long a sign-in attempt may take.
const DefaultTTL = 10 * time.Minute

// ErrInvalidState is returned by Consume for unknown, used or expired tokens.
var ErrInvalidState = errors.New("oauth state is invalid or expired")

// State is one pending sign-in attempt.
type State struct {
	State     string    `bson:"state"`
	ReturnURL string    `bson:"return_url,omitempty"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("oauth_states"), now: time.Now}
}

// Issue creates and stores a fresh random state token.
func (s *Store) Issue(ctx context.Context, returnURL string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	token := uuid.NewString()
	if err := s.Save(ctx, token, returnURL, s.now().Add(ttl)); err != nil {
		return "", err
	}
	return token, nil
}

// Save stores a caller-chosen token.
func (s *Store) Save(ctx context.Context, state, returnURL string, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	_, err := s.c.InsertOne(ctx, State{
		State:     state,
		ReturnURL: returnURL,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: s.now().UTC(),
	})
	return err
}

// Consume deletes the token and returns its return URL. A token can be
// consumed at most once.
func (s *Store) Consume(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", ErrInvalidState
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var st State
	err := s.c.FindOneAndDelete(ctx, bson.M{
		"state":      state,
		"expires_at": bson.M{"$gt": s.now().UTC()},
	}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrInvalidState
	}
	if err != nil {
		return "", err
	}
	return st.ReturnURL, nil
}

// CleanupExpired removes expired tokens the TTL monitor has not reached yet.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": s.now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
