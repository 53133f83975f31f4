// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	var problems []string

	ensure := func(coll string, validator bson.M) {
		if err := ensureCollection(ctx, db, coll, logger); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if validator == nil {
			return
		}
		if err := setValidator(ctx, db, coll, validator); err != nil {
			if isUnsupported(err) {
				logger.Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
			return
		}
		logger.Debug("validator ensured", zap.String("collection", coll))
	}

	ensure("users", usersSchema())
	ensure("groups", groupsSchema())
	ensure("group_memberships", groupMembershipsSchema())
	ensure("events", eventsSchema())
	ensure("event_subscriptions", subscriptionsSchema())
	ensure("login_records", nil)
	ensure("oauth_states", nil)
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, logger *zap.Logger) error {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err == nil && len(names) > 0 {
		return nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		// Lost a race with another instance, or a prior run.
		if isNamespaceExists(err) {
			return nil
		}
		return err
	}
	logger.Info("created collection", zap.String("collection", name))
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	return db.RunCommand(ctx, cmd).Err()
}

func commandError(err error, codes ...int32) bool {
	var ce mongo.CommandError
	if !errors.As(err, &ce) {
		return false
	}
	for _, c := range codes {
		if ce.Code == c {
			return true
		}
	}
	return false
}

// 48 NamespaceExists.
func isNamespaceExists(err error) bool {
	return commandError(err, 48) || strings.Contains(strings.ToLower(err.Error()), "already exists")
}

// 59 CommandNotFound, 115 CommandNotSupported.
func isUnsupported(err error) bool {
	if commandError(err, 59, 115) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "no such command") || strings.Contains(s, "not supported") || strings.Contains(s, "not implemented")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "full_name", "role", "active", "auth_method"},
			"properties": bson.M{
				"email":          nonBlank,
				"full_name":      nonBlank,
				"full_name_ci":   bson.M{"bsonType": "string"},
				"role":           bson.M{"enum": bson.A{string(models.RoleUser), string(models.RoleAdmin)}},
				"active":         bson.M{"bsonType": "bool"},
				"auth_method":    bson.M{"enum": models.AuthMethodValues()},
				"auth_return_id": bson.M{"bsonType": bson.A{"string", "null"}},
				"approved_at":    bson.M{"bsonType": bson.A{"date", "null"}},
			},
		},
	}
}

func groupsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "visible"},
			"properties": bson.M{
				"name":    nonBlank,
				"name_ci": nonBlank,
				"visible": bson.M{"bsonType": "bool"},
			},
		},
	}
}

func groupMembershipsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "user_id", "role"},
			"properties": bson.M{
				"group_id": bson.M{"bsonType": "objectId"},
				"user_id":  bson.M{"bsonType": "objectId"},
				"role":     bson.M{"enum": bson.A{string(models.GroupRoleMember), string(models.GroupRoleAdmin)}},
			},
		},
	}
}

// Events also carry an $expr so a stored range can never run backwards.
func eventsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "title", "start_date", "end_date", "visible"},
			"properties": bson.M{
				"group_id":   bson.M{"bsonType": "objectId"},
				"title":      nonBlank,
				"start_date": bson.M{"bsonType": "date"},
				"end_date":   bson.M{"bsonType": "date"},
				"visible":    bson.M{"bsonType": "bool"},
			},
		},
		"$expr": bson.M{"$gte": bson.A{"$end_date", "$start_date"}},
	}
}

func subscriptionsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"event_id", "user_id"},
			"properties": bson.M{
				"event_id": bson.M{"bsonType": "objectId"},
				"user_id":  bson.M{"bsonType": "objectId"},
			},
		},
	}
}
