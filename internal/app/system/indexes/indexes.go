// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// spec is the desired index set for one collection.
type spec struct {
	collection string
	models     []mongo.IndexModel
}

func specs() []spec {
	return []spec{
		{"users", []mongo.IndexModel{
			unique("uniq_users_email", bson.D{{Key: "email", Value: 1}}),
			plain("idx_users_name", bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}}),
			plain("idx_users_pending", bson.D{{Key: "active", Value: 1}, {Key: "approved_at", Value: 1}, {Key: "created_at", Value: 1}}),
			{
				Keys: bson.D{{Key: "auth_return_id", Value: 1}},
				Options: options.Index().SetName("uniq_users_google_sub").SetUnique(true).
					SetPartialFilterExpression(bson.M{"auth_return_id": bson.M{"$type": "string"}}),
			},
		}},
		{"groups", []mongo.IndexModel{
			unique("uniq_groups_name", bson.D{{Key: "name_ci", Value: 1}}),
			plain("idx_groups_visible", bson.D{{Key: "visible", Value: 1}, {Key: "name_ci", Value: 1}}),
		}},
		{"group_memberships", []mongo.IndexModel{
			unique("uniq_membership_group_user", bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}}),
			plain("idx_membership_user", bson.D{{Key: "user_id", Value: 1}}),
		}},
		{"events", []mongo.IndexModel{
			plain("idx_events_group_start", bson.D{{Key: "group_id", Value: 1}, {Key: "start_date", Value: 1}}),
			plain("idx_events_visible_start", bson.D{{Key: "visible", Value: 1}, {Key: "start_date", Value: 1}}),
		}},
		{"event_subscriptions", []mongo.IndexModel{
			unique("uniq_subscription_event_user", bson.D{{Key: "event_id", Value: 1}, {Key: "user_id", Value: 1}}),
			plain("idx_subscription_user", bson.D{{Key: "user_id", Value: 1}}),
		}},
		{"login_records", []mongo.IndexModel{
			plain("idx_logins_user_created", bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}),
		}},
		{"audit_events", []mongo.IndexModel{
			plain("idx_audit_timestamp", bson.D{{Key: "timestamp", Value: -1}}),
			plain("idx_audit_user_ts", bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}),
			plain("idx_audit_group_ts", bson.D{{Key: "group_id", Value: 1}, {Key: "timestamp", Value: -1}}),
			plain("idx_audit_type_ts", bson.D{{Key: "category", Value: 1}, {Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}}),
		}},
		{"oauth_states", []mongo.IndexModel{
			unique("uniq_oauth_state", bson.D{{Key: "state", Value: 1}}),
			{
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetName("ttl_oauth_state").SetExpireAfterSeconds(0),
			},
		}},
	}
}

func unique(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true)}
}

func plain(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

/*
EnsureAll is called at startup (EnsureSchema). Each collection is reconciled
independently and problems are aggregated so one bad collection does not hide
another.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	var problems []string
	for _, s := range specs() {
		if err := ensureIndexSet(ctx, db.Collection(s.collection), s.models, logger); err != nil {
			problems = append(problems, s.collection+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(b *bool) bool {
	return b != nil && *b
}

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

// ensureIndexSet creates missing indexes and replaces ones whose name or
// uniqueness differs from the desired model.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel, logger *zap.Logger) error {
	existing, err := listExisting(ctx, coll)
	if err != nil {
		// A collection that does not exist yet has no indexes.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		name := *m.Options.Name
		sig := keySig(m.Keys.(bson.D))
		wantUnique := boolVal(m.Options.Unique)
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			if ex.Name == name && boolVal(ex.Unique) == wantUnique {
				logger.Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", name))
				continue
			}
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s: drop %s failed: %v", name, ex.Name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if wantUnique && wafflemongo.IsDup(err) {
				errs = append(errs, fmt.Sprintf("%s: cannot create unique index on (%s), duplicates present", name, sig))
			} else {
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			}
			continue
		}
		logger.Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", wantUnique),
			zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
