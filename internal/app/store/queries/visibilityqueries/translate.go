// Package visibilityqueries translates visibility predicates into MongoDB
// filters and implements visibility.GroupLookup against the groups and
// group_memberships collections.
package visibilityqueries

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/eventhub/internal/app/system/visibility"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Target says which collection a filter is being built for. HasMembership
// and ParentGroup resolve differently for groups and events.
type Target int

const (
	Groups Target = iota
	Events
)

func (t Target) String() string {
	if t == Events {
		return "events"
	}
	return "groups"
}

var errParentOnGroups = errors.New("ParentGroup predicate applied to groups")

// matchNothing is a filter no document satisfies.
var matchNothing = bson.M{"_id": bson.M{"$in": bson.A{}}}

// Translator turns predicates into bson filters. Membership terms are
// resolved to id lists with one query each; nothing is cached between calls.
type Translator struct {
	groups      *mongo.Collection
	memberships *mongo.Collection
}

func NewTranslator(db *mongo.Database) *Translator {
	return &Translator{
		groups:      db.Collection("groups"),
		memberships: db.Collection("group_memberships"),
	}
}

// Filter returns the bson filter for p against target.
func (tr *Translator) Filter(ctx context.Context, p visibility.Predicate, target Target) (bson.M, error) {
	switch v := p.(type) {
	case visibility.Always:
		return bson.M{}, nil
	case visibility.Never:
		return matchNothing, nil
	case visibility.VisibleFlag:
		return bson.M{"visible": true}, nil
	case visibility.HasMembership:
		ids, err := tr.memberGroupIDs(ctx, v.UserID)
		if err != nil {
			return nil, err
		}
		return bson.M{groupField(target): bson.M{"$in": ids}}, nil
	case visibility.And:
		return tr.combine(ctx, "$and", v.Terms, target)
	case visibility.Or:
		return tr.combine(ctx, "$or", v.Terms, target)
	case visibility.ParentGroup:
		if target != Events {
			return nil, errParentOnGroups
		}
		ids, err := tr.matchingGroupIDs(ctx, v.Group)
		if err != nil {
			return nil, err
		}
		return bson.M{"group_id": bson.M{"$in": ids}}, nil
	case nil:
		return nil, errors.New("nil predicate")
	}
	return nil, fmt.Errorf("unsupported predicate %T", p)
}

func (tr *Translator) combine(ctx context.Context, op string, terms []visibility.Predicate, target Target) (bson.M, error) {
	if len(terms) == 0 {
		// Empty And is Always, empty Or is Never.
		if op == "$and" {
			return bson.M{}, nil
		}
		return matchNothing, nil
	}
	parts := make(bson.A, 0, len(terms))
	for _, t := range terms {
		f, err := tr.Filter(ctx, t, target)
		if err != nil {
			return nil, err
		}
		parts = append(parts, f)
	}
	return bson.M{op: parts}, nil
}

func groupField(t Target) string {
	if t == Events {
		return "group_id"
	}
	return "_id"
}

// memberGroupIDs lists the groups userID belongs to.
func (tr *Translator) memberGroupIDs(ctx context.Context, userID primitive.ObjectID) (bson.A, error) {
	raw, err := tr.memberships.Distinct(ctx, "group_id", bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("member groups: %w", err)
	}
	return nonNil(raw), nil
}

// matchingGroupIDs lists the groups that satisfy a group predicate.
func (tr *Translator) matchingGroupIDs(ctx context.Context, p visibility.Predicate) (bson.A, error) {
	f, err := tr.Filter(ctx, p, Groups)
	if err != nil {
		return nil, err
	}
	raw, err := tr.groups.Distinct(ctx, "_id", f)
	if err != nil {
		return nil, fmt.Errorf("matching groups: %w", err)
	}
	return nonNil(raw), nil
}

func nonNil(raw []interface{}) bson.A {
	if raw == nil {
		return bson.A{}
	}
	return bson.A(raw)
}

// And joins filters with $and, skipping empty ones.
func And(filters ...bson.M) bson.M {
	var clauses bson.A
	for _, f := range filters {
		if len(f) > 0 {
			clauses = append(clauses, f)
		}
	}
	switch len(clauses) {
	case 0:
		return bson.M{}
	case 1:
		return clauses[0].(bson.M)
	}
	return bson.M{"$and": clauses}
}
