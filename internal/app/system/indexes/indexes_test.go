package indexes_test

import (
	"testing"

	"github.com/dalemusser/eventhub/internal/app/system/indexes"
	"github.com/dalemusser/eventhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func indexNames(t *testing.T, coll *mongo.Collection) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			t.Fatalf("decode index: %v", err)
		}
		names[idx["name"].(string)] = true
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	want := map[string][]string{
		"users":               {"uniq_users_email", "uniq_users_google_sub"},
		"groups":              {"uniq_groups_name"},
		"group_memberships":   {"uniq_membership_group_user", "idx_membership_user"},
		"events":              {"idx_events_group_start"},
		"event_subscriptions": {"uniq_subscription_event_user"},
		"login_records":       {"idx_logins_user_created"},
		"audit_events":        {"idx_audit_timestamp", "idx_audit_user_ts", "idx_audit_group_ts", "idx_audit_type_ts"},
		"oauth_states":        {"ttl_oauth_state"},
	}
	for coll, names := range want {
		got := indexNames(t, db.Collection(coll))
		for _, n := range names {
			if !got[n] {
				t.Errorf("%s: expected index %q, got %v", coll, n, got)
			}
		}
	}
}

func TestEnsureAll_RenamesMismatchedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Same keys, different name and not unique.
	_, err := db.Collection("groups").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name_ci", Value: 1}},
	})
	if err != nil {
		t.Fatalf("seed index: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	got := indexNames(t, db.Collection("groups"))
	if !got["uniq_groups_name"] || got["name_ci_1"] {
		t.Errorf("expected name_ci_1 replaced by uniq_groups_name, got %v", got)
	}
}
