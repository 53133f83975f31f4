// Package groupqueries lists groups a caller may discover, with member
// counts and the caller's own role.
package groupqueries

import (
	"context"

	"github.com/dalemusser/eventhub/internal/app/store/queries/visibilityqueries"
	"github.com/dalemusser/eventhub/internal/app/system/paging"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/eventhub/internal/app/system/visibility"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Item is one row of the group list.
type Item struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description" json:"description"`
	Visible     bool               `bson:"visible" json:"visible"`
	MemberCount int                `bson:"member_count" json:"member_count"`
	// MyRole is empty when the caller is not a member.
	MyRole models.GroupRole `bson:"my_role" json:"my_role,omitempty"`
}

// Result is one page of Items.
type Result struct {
	Items      []Item `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Filter narrows the list beyond what visibility already allows.
type Filter struct {
	Search   string // prefix match on the folded name
	MineOnly bool   // only groups the caller belongs to
}

// List returns the groups vc may discover, ordered by name.
func List(ctx context.Context, db *mongo.Database, vc visibility.Context, f Filter, page paging.Page) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	scope := visibility.GroupFilter(vc)
	if f.MineOnly {
		scope = visibility.AllOf(scope, visibility.HasMembership{UserID: vc.UserID})
	}
	scoped, err := visibilityqueries.NewTranslator(db).Filter(ctx, scope, visibilityqueries.Groups)
	if err != nil {
		return Result{}, err
	}

	var search bson.M
	if q := text.Fold(f.Search); q != "" {
		search = bson.M{"name_ci": bson.M{"$gte": q, "$lt": q + "\uffff"}}
	}
	match := visibilityqueries.And(scoped, search, page.Window("name_ci"))

	pipe := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: page.FetchLimit()}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "group_memberships",
			"localField":   "_id",
			"foreignField": "group_id",
			"as":           "memberships",
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":          1,
			"name":         1,
			"name_ci":      1,
			"description":  1,
			"visible":      1,
			"member_count": bson.M{"$size": "$memberships"},
			"my_role": bson.M{"$ifNull": bson.A{
				bson.M{"$arrayElemAt": bson.A{
					bson.M{"$map": bson.M{
						"input": bson.M{"$filter": bson.M{
							"input": "$memberships",
							"as":    "m",
							"cond":  bson.M{"$eq": bson.A{"$$m.user_id", vc.UserID}},
						}},
						"as": "m",
						"in": "$$m.role",
					}},
					0,
				}},
				"",
			}},
		}}},
	}

	cur, err := db.Collection("groups").Aggregate(ctx, pipe)
	if err != nil {
		return Result{}, err
	}
	defer cur.Close(ctx)

	items := []Item{}
	if err := cur.All(ctx, &items); err != nil {
		return Result{}, err
	}

	res := Result{Items: items}
	if paging.Trim(&res.Items, page.Limit) {
		res.NextCursor = paging.NextCursor(res.Items,
			func(it Item) string { return it.NameCI },
			func(it Item) primitive.ObjectID { return it.ID })
	}
	return res, nil
}
