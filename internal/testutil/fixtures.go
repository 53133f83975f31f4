package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/eventhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Calling it again on the same request adds to the existing route context.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures inserts test documents directly, bypassing the stores.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts an approved, active user.
func (f *Fixtures) CreateUser(ctx context.Context, email string, role models.Role) models.User {
	f.t.Helper()
	return f.insertUser(ctx, email, role, true, true)
}

// CreatePendingUser inserts an inactive user that was never approved.
func (f *Fixtures) CreatePendingUser(ctx context.Context, email string, createdAt time.Time) models.User {
	f.t.Helper()
	u := f.insertUser(ctx, email, models.RoleUser, false, false)
	if !createdAt.IsZero() {
		if _, err := f.db.Collection("users").UpdateByID(ctx, u.ID, bson.M{"$set": bson.M{"created_at": createdAt}}); err != nil {
			f.t.Fatalf("failed to backdate pending user: %v", err)
		}
		u.CreatedAt = createdAt
	}
	return u
}

// CreatePasswordUser inserts an approved, active user that signs in with
// password.
func (f *Fixtures) CreatePasswordUser(ctx context.Context, email, password string, role models.Role) models.User {
	f.t.Helper()
	u := f.insertUser(ctx, email, role, true, true)
	f.SetPassword(ctx, &u, password)
	return u
}

// SetPassword stores a bcrypt hash of password on u.
func (f *Fixtures) SetPassword(ctx context.Context, u *models.User, password string) {
	f.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash password: %v", err)
	}
	if _, err := f.db.Collection("users").UpdateByID(ctx, u.ID, bson.M{"$set": bson.M{"password_hash": string(hash)}}); err != nil {
		f.t.Fatalf("failed to set password: %v", err)
	}
	u.PasswordHash = string(hash)
}

// CreateInactiveUser inserts a user that was approved and later deactivated.
func (f *Fixtures) CreateInactiveUser(ctx context.Context, email string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, email, models.RoleUser, false, true)
}

func (f *Fixtures) insertUser(ctx context.Context, email string, role models.Role, active, approved bool) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	name := "Test " + email
	u := models.User{
		ID:         primitive.NewObjectID(),
		Email:      email,
		FullName:   name,
		FullNameCI: text.Fold(name),
		AuthMethod: models.AuthMethodPassword,
		Role:       role,
		Active:     active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if approved {
		u.ApprovedAt = &now
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateGroup inserts a group created by createdBy.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, visible bool, createdBy primitive.ObjectID) models.Group {
	f.t.Helper()
	now := time.Now().UTC()
	g := models.Group{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Visible:   visible,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// AddMember inserts a membership row.
func (f *Fixtures) AddMember(ctx context.Context, groupID, userID primitive.ObjectID, role models.GroupRole) {
	f.t.Helper()
	m := models.GroupMembership{
		ID:       primitive.NewObjectID(),
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("group_memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to add member: %v", err)
	}
}

// CreateEvent inserts an event in groupID starting at start and lasting an hour.
func (f *Fixtures) CreateEvent(ctx context.Context, groupID primitive.ObjectID, title string, visible bool, start time.Time) models.Event {
	f.t.Helper()
	now := time.Now().UTC()
	e := models.Event{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		Title:     title,
		TitleCI:   text.Fold(title),
		StartDate: start.UTC(),
		EndDate:   start.Add(time.Hour).UTC(),
		Visible:   visible,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("events").InsertOne(ctx, e); err != nil {
		f.t.Fatalf("failed to create test event: %v", err)
	}
	return e
}

// Subscribe inserts an event subscription.
func (f *Fixtures) Subscribe(ctx context.Context, eventID, userID primitive.ObjectID) {
	f.t.Helper()
	s := models.EventSubscription{
		ID:        primitive.NewObjectID(),
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("event_subscriptions").InsertOne(ctx, s); err != nil {
		f.t.Fatalf("failed to subscribe: %v", err)
	}
}
