package userstore_test

import (
	"errors"
	"testing"
	"time"

	userstore "github.com/dalemusser/eventhub/internal/app/store/users"
	"github.com/dalemusser/eventhub/internal/app/system/authz"
	"github.com/dalemusser/eventhub/internal/app/system/indexes"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"github.com/dalemusser/eventhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestStore_Create_Defaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		FullName: "  Ada   Lovelace ",
		Email:    " Ada@Example.COM ",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Email != "ada@example.com" {
		t.Errorf("expected normalized email, got %q", created.Email)
	}
	if created.FullName != "Ada Lovelace" || created.FullNameCI != "ada lovelace" {
		t.Errorf("unexpected name fields %q / %q", created.FullName, created.FullNameCI)
	}
	if created.Role != models.RoleUser {
		t.Errorf("expected role USER, got %q", created.Role)
	}
	if created.Active || !created.Pending() {
		t.Error("expected new account to be inactive and pending")
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	if _, err := store.Create(ctx, models.User{FullName: "One", Email: "dup@example.com"}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.User{FullName: "Two", Email: "DUP@example.com"})
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestStore_Create_BadRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, models.User{FullName: "X", Email: "x@example.com", Role: "OWNER"})
	if err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestStore_Create_BadAuthMethod(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, models.User{FullName: "X", Email: "x@example.com", AuthMethod: "clever"})
	if err == nil {
		t.Error("expected error for unsupported auth method")
	}
}

func TestStore_ApproveAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	pending := fixtures.CreatePendingUser(ctx, "pending@example.com", time.Time{})
	active := fixtures.CreateUser(ctx, "active@example.com", models.RoleUser)
	inactive := fixtures.CreateInactiveUser(ctx, "inactive@example.com")

	check := func(status string, want ...primitive.ObjectID) {
		t.Helper()
		got, err := store.List(ctx, userstore.ListFilter{Status: status})
		if err != nil {
			t.Fatalf("List(%s) failed: %v", status, err)
		}
		if len(got) != len(want) {
			t.Fatalf("List(%s): expected %d users, got %d", status, len(want), len(got))
		}
		for i := range want {
			if got[i].ID != want[i] {
				t.Errorf("List(%s)[%d]: expected %s, got %s", status, i, want[i].Hex(), got[i].ID.Hex())
			}
		}
	}

	check(userstore.StatusPending, pending.ID)
	check(userstore.StatusActive, active.ID)
	check(userstore.StatusInactive, inactive.ID)

	if err := store.Approve(ctx, pending.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	check(userstore.StatusPending)

	approved, err := store.GetByID(ctx, pending.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !approved.Active || approved.ApprovedAt == nil {
		t.Errorf("expected approved account to be active with approved_at, got %+v", approved)
	}

	// Approving twice keeps the first timestamp.
	first := *approved.ApprovedAt
	if err := store.Approve(ctx, pending.ID); err != nil {
		t.Fatalf("second Approve failed: %v", err)
	}
	again, _ := store.GetByID(ctx, pending.ID)
	if !again.ApprovedAt.Equal(first) {
		t.Errorf("expected approved_at unchanged, got %v want %v", again.ApprovedAt, first)
	}

	if err := store.Approve(ctx, primitive.NewObjectID()); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_List_Query(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateUser(ctx, "carol@example.com", models.RoleUser)
	fixtures.CreateUser(ctx, "dave@example.com", models.RoleUser)

	got, err := store.List(ctx, userstore.ListFilter{Query: "CAROL"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 1 || got[0].Email != "carol@example.com" {
		t.Errorf("expected only carol, got %+v", got)
	}
}

func TestStore_SetRoleAndActive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "erin@example.com", models.RoleUser)

	if err := store.SetRole(ctx, u.ID, models.RoleAdmin); err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}
	if err := store.SetActive(ctx, u.ID, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	got, _ := store.GetByID(ctx, u.ID)
	if got.Role != models.RoleAdmin || got.Active {
		t.Errorf("expected inactive ADMIN, got role=%q active=%v", got.Role, got.Active)
	}

	if err := store.SetRole(ctx, u.ID, "ROOT"); err == nil {
		t.Error("expected error for unknown role")
	}
	if err := store.SetActive(ctx, primitive.NewObjectID(), true); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_DeletePendingBefore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	old := fixtures.CreatePendingUser(ctx, "old@example.com", time.Now().Add(-30*24*time.Hour))
	fresh := fixtures.CreatePendingUser(ctx, "fresh@example.com", time.Time{})
	deactivated := fixtures.CreateInactiveUser(ctx, "deactivated@example.com")

	cutoff := time.Now().Add(-7 * 24 * time.Hour)
	n, err := store.DeletePendingBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("DeletePendingBefore failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 deleted, got %d", n)
	}

	if _, err := store.GetByID(ctx, old.ID); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected old pending account removed, got %v", err)
	}
	for _, keep := range []models.User{fresh, deactivated} {
		if _, err := store.GetByID(ctx, keep.ID); err != nil {
			t.Errorf("expected %s kept, got %v", keep.Email, err)
		}
	}

	n, err = store.DeletePendingBefore(ctx, cutoff)
	if err != nil || n != 0 {
		t.Errorf("expected second run to delete nothing, got (%d, %v)", n, err)
	}
}

func TestFetcher_LoadAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fetcher := userstore.NewFetcher(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateInactiveUser(ctx, "frank@example.com")

	sc, err := fetcher.LoadAccount(ctx, u.ID)
	if err != nil {
		t.Fatalf("LoadAccount failed: %v", err)
	}
	if sc.UserID != u.ID || sc.Email != u.Email || sc.Role != models.RoleUser || sc.Active {
		t.Errorf("unexpected session context %+v", sc)
	}

	_, err = fetcher.LoadAccount(ctx, primitive.NewObjectID())
	if !errors.Is(err, authz.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}
