// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"fmt"
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

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_memberships")}
}

var (
	ErrDuplicateMembership = errors.New("user is already a member of this group")
	ErrNotMember           = errors.New("user is not a member of this group")
	ErrLastAdmin           = errors.New("group must keep at least one admin")
	errBadRole             = errors.New(`role must be "MEMBER" or "ADMIN"`)
)

// Add creates the membership row for (groupID, userID).
func (s *Store) Add(ctx context.Context, groupID, userID primitive.ObjectID, role models.GroupRole) error {
	if _, ok := models.ParseGroupRole(string(role)); !ok {
		return errBadRole
	}
	m := models.GroupMembership{
		ID:       primitive.NewObjectID(),
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateMembership
		}
		return err
	}
	return nil
}

// ChangeRole sets a member's role and returns the role it replaced.
//
// Demoting an ADMIN is written first and then checked: if the group is left
// with no ADMIN the old role is restored and ErrLastAdmin returned. Two
// admins demoting each other at the same time therefore cannot both
// succeed; at worst both are refused.
func (s *Store) ChangeRole(ctx context.Context, groupID, userID primitive.ObjectID, role models.GroupRole) (models.GroupRole, error) {
	if _, ok := models.ParseGroupRole(string(role)); !ok {
		return "", errBadRole
	}
	filter := bson.M{"group_id": groupID, "user_id": userID}

	var before models.GroupMembership
	err := s.c.FindOneAndUpdate(ctx, filter,
		bson.M{"$set": bson.M{"role": role}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNotMember
	}
	if err != nil {
		return "", err
	}
	if before.Role != models.GroupRoleAdmin || role == models.GroupRoleAdmin {
		return before.Role, nil
	}

	n, err := s.CountAdmins(ctx, groupID)
	if err != nil {
		return before.Role, err
	}
	if n > 0 {
		return before.Role, nil
	}
	if _, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"role": models.GroupRoleAdmin}}); err != nil {
		return before.Role, fmt.Errorf("%w; restoring admin role failed: %v", ErrLastAdmin, err)
	}
	return before.Role, ErrLastAdmin
}

// RemoveMember deletes a membership and returns the role it held. Removing
// an ADMIN is checked after the delete the same way ChangeRole checks a
// demotion: if no ADMIN remains the row is put back and ErrLastAdmin
// returned.
func (s *Store) RemoveMember(ctx context.Context, groupID, userID primitive.ObjectID) (models.GroupRole, error) {
	var removed models.GroupMembership
	err := s.c.FindOneAndDelete(ctx, bson.M{"group_id": groupID, "user_id": userID}).Decode(&removed)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNotMember
	}
	if err != nil {
		return "", err
	}
	if removed.Role != models.GroupRoleAdmin {
		return removed.Role, nil
	}

	n, err := s.CountAdmins(ctx, groupID)
	if err != nil {
		return removed.Role, err
	}
	if n > 0 {
		return removed.Role, nil
	}
	if _, err := s.c.InsertOne(ctx, removed); err != nil && !wafflemongo.IsDup(err) {
		return removed.Role, fmt.Errorf("%w; restoring membership failed: %v", ErrLastAdmin, err)
	}
	return removed.Role, ErrLastAdmin
}

// GroupRole implements authz.MembershipLookup.
func (s *Store) GroupRole(ctx context.Context, groupID, userID primitive.ObjectID) (models.GroupRole, bool, error) {
	var m models.GroupMembership
	proj := options.FindOne().SetProjection(bson.M{"role": 1})
	err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}, proj).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return m.Role, true, nil
}

// CountAdmins returns the number of ADMIN members of a group.
func (s *Store) CountAdmins(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"group_id": groupID, "role": models.GroupRoleAdmin})
}

// DeleteByGroup removes all memberships for a group.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByUser removes all memberships for a user.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
