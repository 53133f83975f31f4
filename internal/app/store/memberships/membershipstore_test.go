package membershipstore_test

import (
	"errors"
	"sync"
	"testing"

	membershipstore "github.com/dalemusser/eventhub/internal/app/store/memberships"
	"github.com/dalemusser/eventhub/internal/app/system/indexes"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"github.com/dalemusser/eventhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestStore_AddAndGroupRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	groupID, userID := primitive.NewObjectID(), primitive.NewObjectID()

	if err := store.Add(ctx, groupID, userID, models.GroupRoleMember); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := store.Add(ctx, groupID, userID, models.GroupRoleAdmin); !errors.Is(err, membershipstore.ErrDuplicateMembership) {
		t.Errorf("expected ErrDuplicateMembership, got %v", err)
	}

	role, found, err := store.GroupRole(ctx, groupID, userID)
	if err != nil || !found || role != models.GroupRoleMember {
		t.Errorf("expected (MEMBER, true, nil), got (%q, %v, %v)", role, found, err)
	}

	_, found, err = store.GroupRole(ctx, groupID, primitive.NewObjectID())
	if err != nil || found {
		t.Errorf("expected not found without error, got (%v, %v)", found, err)
	}
}

func TestStore_Add_BadRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Add(ctx, primitive.NewObjectID(), primitive.NewObjectID(), "OWNER"); err == nil {
		t.Error("expected error for unknown group role")
	}
}

func TestStore_ChangeRoleAndCountAdmins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	groupID := primitive.NewObjectID()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	fixtures.AddMember(ctx, groupID, a, models.GroupRoleAdmin)
	fixtures.AddMember(ctx, groupID, b, models.GroupRoleMember)

	if n, _ := store.CountAdmins(ctx, groupID); n != 1 {
		t.Errorf("expected 1 admin, got %d", n)
	}
	prev, err := store.ChangeRole(ctx, groupID, b, models.GroupRoleAdmin)
	if err != nil {
		t.Fatalf("ChangeRole failed: %v", err)
	}
	if prev != models.GroupRoleMember {
		t.Errorf("expected previous role MEMBER, got %q", prev)
	}
	if n, _ := store.CountAdmins(ctx, groupID); n != 2 {
		t.Errorf("expected 2 admins, got %d", n)
	}
	if _, err := store.ChangeRole(ctx, groupID, primitive.NewObjectID(), models.GroupRoleAdmin); !errors.Is(err, membershipstore.ErrNotMember) {
		t.Errorf("expected ErrNotMember, got %v", err)
	}
	if _, err := store.ChangeRole(ctx, groupID, b, "OWNER"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestStore_ChangeRole_KeepsLastAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	groupID := primitive.NewObjectID()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	fixtures.AddMember(ctx, groupID, a, models.GroupRoleAdmin)
	fixtures.AddMember(ctx, groupID, b, models.GroupRoleAdmin)

	if _, err := store.ChangeRole(ctx, groupID, a, models.GroupRoleMember); err != nil {
		t.Fatalf("demoting one of two admins failed: %v", err)
	}
	_, err := store.ChangeRole(ctx, groupID, b, models.GroupRoleMember)
	if !errors.Is(err, membershipstore.ErrLastAdmin) {
		t.Fatalf("expected ErrLastAdmin, got %v", err)
	}
	role, _, err := store.GroupRole(ctx, groupID, b)
	if err != nil {
		t.Fatalf("GroupRole failed: %v", err)
	}
	if role != models.GroupRoleAdmin {
		t.Errorf("expected refused demotion to be undone, got role %q", role)
	}
}

func TestStore_ConcurrentDemotionsKeepAnAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	groupID := primitive.NewObjectID()
	admins := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()}
	for _, id := range admins {
		fixtures.AddMember(ctx, groupID, id, models.GroupRoleAdmin)
	}

	var wg sync.WaitGroup
	for i, id := range admins {
		wg.Add(1)
		go func(i int, id primitive.ObjectID) {
			defer wg.Done()
			// Mix demotions and removals.
			if i%2 == 0 {
				_, _ = store.ChangeRole(ctx, groupID, id, models.GroupRoleMember)
			} else {
				_, _ = store.RemoveMember(ctx, groupID, id)
			}
		}(i, id)
	}
	wg.Wait()

	n, err := store.CountAdmins(ctx, groupID)
	if err != nil {
		t.Fatalf("CountAdmins failed: %v", err)
	}
	if n < 1 {
		t.Errorf("expected at least one admin to remain, got %d", n)
	}
}

func TestStore_RemoveMemberAndDeleteBy(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g1, g2 := primitive.NewObjectID(), primitive.NewObjectID()
	u1, u2 := primitive.NewObjectID(), primitive.NewObjectID()
	fixtures.AddMember(ctx, g1, u1, models.GroupRoleMember)
	fixtures.AddMember(ctx, g1, u2, models.GroupRoleMember)
	fixtures.AddMember(ctx, g2, u1, models.GroupRoleMember)

	role, err := store.RemoveMember(ctx, g1, u2)
	if err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	if role != models.GroupRoleMember {
		t.Errorf("expected removed role MEMBER, got %q", role)
	}
	if _, err := store.RemoveMember(ctx, g1, u2); !errors.Is(err, membershipstore.ErrNotMember) {
		t.Errorf("expected ErrNotMember on second remove, got %v", err)
	}

	if n, err := store.DeleteByUser(ctx, u1); err != nil || n != 2 {
		t.Errorf("expected 2 deleted for user, got (%d, %v)", n, err)
	}
	if n, err := store.DeleteByGroup(ctx, g1); err != nil || n != 0 {
		t.Errorf("expected nothing left in group, got (%d, %v)", n, err)
	}
}

func TestStore_RemoveMember_KeepsLastAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	groupID := primitive.NewObjectID()
	admin, member := primitive.NewObjectID(), primitive.NewObjectID()
	fixtures.AddMember(ctx, groupID, admin, models.GroupRoleAdmin)
	fixtures.AddMember(ctx, groupID, member, models.GroupRoleMember)

	if _, err := store.RemoveMember(ctx, groupID, admin); !errors.Is(err, membershipstore.ErrLastAdmin) {
		t.Fatalf("expected ErrLastAdmin, got %v", err)
	}
	role, found, err := store.GroupRole(ctx, groupID, admin)
	if err != nil {
		t.Fatalf("GroupRole failed: %v", err)
	}
	if !found || role != models.GroupRoleAdmin {
		t.Errorf("expected admin membership to be restored, got (%q, %v)", role, found)
	}
}
