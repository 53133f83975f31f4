package userstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/eventhub/internal/app/system/normalize"
	"github.com/dalemusser/eventhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrNotFound is returned by updates that matched no user.
	ErrNotFound = errors.New("user not found")
	errBadRole  = errors.New(`role must be "USER" or "ADMIN"`)
	errNoEmail  = errors.New("email is required")

	errBadAuthMethod = errors.New("unsupported auth method")
)

// GetByID loads a user by ObjectID. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// GetByGoogleID looks up a Google-linked user by subject id.
func (s *Store) GetByGoogleID(ctx context.Context, sub string) (models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{
		"auth_method":    models.AuthMethodGoogle,
		"auth_return_id": sub,
	}).Decode(&u)
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// Create inserts a new user after normalizing fields. An empty name becomes
// the email and an empty role becomes USER. Active and ApprovedAt are stored as given, so registrations arrive
// inactive and pending.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Email = normalize.Email(u.Email)
	if u.Email == "" {
		return models.User{}, errNoEmail
	}
	u.FullName = normalize.Name(u.FullName)
	if u.FullName == "" {
		u.FullName = u.Email
	}
	u.FullNameCI = text.Fold(u.FullName)
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if _, ok := models.ParseRole(string(u.Role)); !ok {
		return models.User{}, errBadRole
	}
	if u.AuthMethod == "" {
		u.AuthMethod = models.AuthMethodPassword
	}
	if !models.IsValidAuthMethod(u.AuthMethod) {
		return models.User{}, errBadAuthMethod
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// Status values accepted by List.
const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	Status string
	Query  string
	Limit  int64
}

// List returns users ordered by name. Pending means never approved;
// inactive means approved and later deactivated.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.User, error) {
	filter := bson.M{}
	switch f.Status {
	case StatusPending:
		filter["approved_at"] = bson.M{"$exists": false}
	case StatusActive:
		filter["active"] = true
	case StatusInactive:
		filter["active"] = false
		filter["approved_at"] = bson.M{"$exists": true}
	}
	if q := text.Fold(f.Query); q != "" {
		filter["$or"] = []bson.M{
			{"full_name_ci": bson.M{"$regex": primitive.Regex{Pattern: regexp.QuoteMeta(q)}}},
			{"email": bson.M{"$regex": primitive.Regex{Pattern: regexp.QuoteMeta(normalize.Email(f.Query))}}},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Approve activates a pending account and stamps approved_at. Approving an
// already-approved account is a no-op that still reports success.
func (s *Store) Approve(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		[]bson.M{{"$set": bson.M{
			"active":      true,
			"approved_at": bson.M{"$ifNull": bson.A{"$approved_at", now}},
			"updated_at":  now,
		}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive flips the active flag.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	return s.set(ctx, id, bson.M{"active": active})
}

// SetRole changes the platform role.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role models.Role) error {
	if _, ok := models.ParseRole(string(role)); !ok {
		return errBadRole
	}
	return s.set(ctx, id, bson.M{"role": role})
}

// LinkGoogle attaches a Google subject to an existing account.
func (s *Store) LinkGoogle(ctx context.Context, id primitive.ObjectID, sub string) error {
	return s.set(ctx, id, bson.M{"auth_method": models.AuthMethodGoogle, "auth_return_id": sub})
}

func (s *Store) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user by ID. Returns the number of documents deleted (0 or 1).
// Memberships and subscriptions are removed by the caller.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeletePendingBefore removes never-approved, inactive accounts created
// before cutoff. Safe to run repeatedly.
func (s *Store) DeletePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"active":      false,
		"approved_at": bson.M{"$exists": false},
		"created_at":  bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountAdmins returns the number of active platform admins.
func (s *Store) CountAdmins(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"role": models.RoleAdmin, "active": true})
}
