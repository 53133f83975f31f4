// Package eventqueries lists events a caller may discover. Callers pass a
// visibility.Context, never a raw filter, so every listing is constrained
// by both the event's own flag and its group's visibility.
package eventqueries

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/dalemusser/eventhub/internal/app/store/queries/visibilityqueries"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/eventhub/internal/app/system/visibility"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Item is one row of the event list.
type Item struct {
	ID              primitive.ObjectID `bson:"_id" json:"id"`
	GroupID         primitive.ObjectID `bson:"group_id" json:"group_id"`
	GroupName       string             `bson:"group_name" json:"group_name"`
	Title           string             `bson:"title" json:"title"`
	Description     string             `bson:"description" json:"description"`
	Location        string             `bson:"location,omitempty" json:"location,omitempty"`
	StartDate       time.Time          `bson:"start_date" json:"start_date"`
	EndDate         time.Time          `bson:"end_date" json:"end_date"`
	Visible         bool               `bson:"visible" json:"visible"`
	SubscriberCount int                `bson:"subscriber_count" json:"subscriber_count"`
	Subscribed      bool               `bson:"subscribed" json:"subscribed"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// Filter narrows the list beyond what visibility already allows.
type Filter struct {
	Search         string             // substring of the folded title
	GroupID        primitive.ObjectID // zero means all groups
	UpcomingOnly   bool               // events that have not ended at Now
	SubscribedOnly bool               // events the caller subscribed to
	Now            time.Time          // defaults to time.Now
	Limit          int
}

// List returns events in scope for vc, soonest first.
func List(ctx context.Context, db *mongo.Database, vc visibility.Context, f Filter) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	scoped, err := visibilityqueries.NewTranslator(db).Filter(ctx, visibility.EventScope(vc), visibilityqueries.Events)
	if err != nil {
		return nil, fmt.Errorf("event scope: %w", err)
	}

	clauses := []bson.M{scoped}
	if !f.GroupID.IsZero() {
		clauses = append(clauses, bson.M{"group_id": f.GroupID})
	}
	if q := text.Fold(f.Search); q != "" {
		clauses = append(clauses, bson.M{"title_ci": bson.M{"$regex": regexp.QuoteMeta(q)}})
	}
	if f.UpcomingOnly {
		now := f.Now
		if now.IsZero() {
			now = time.Now()
		}
		clauses = append(clauses, bson.M{"end_date": bson.M{"$gte": now.UTC()}})
	}
	if f.SubscribedOnly {
		raw, err := db.Collection("event_subscriptions").Distinct(ctx, "event_id", bson.M{"user_id": vc.UserID})
		if err != nil {
			return nil, fmt.Errorf("subscribed events: %w", err)
		}
		if raw == nil {
			raw = []interface{}{}
		}
		clauses = append(clauses, bson.M{"_id": bson.M{"$in": raw}})
	}

	pipe := mongo.Pipeline{
		{{Key: "$match", Value: visibilityqueries.And(clauses...)}},
		{{Key: "$sort", Value: bson.D{{Key: "start_date", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: clampLimit(f.Limit)}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "groups",
			"localField":   "group_id",
			"foreignField": "_id",
			"as":           "group",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "event_subscriptions",
			"localField":   "_id",
			"foreignField": "event_id",
			"as":           "subs",
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":              1,
			"group_id":         1,
			"title":            1,
			"description":      1,
			"location":         1,
			"start_date":       1,
			"end_date":         1,
			"visible":          1,
			"updated_at":       1,
			"group_name":       bson.M{"$ifNull": bson.A{bson.M{"$arrayElemAt": bson.A{"$group.name", 0}}, ""}},
			"subscriber_count": bson.M{"$size": "$subs"},
			"subscribed":       bson.M{"$in": bson.A{vc.UserID, "$subs.user_id"}},
		}}},
	}

	cur, err := db.Collection("events").Aggregate(ctx, pipe)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []Item{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func clampLimit(n int) int64 {
	switch {
	case n < 1:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	}
	return int64(n)
}
