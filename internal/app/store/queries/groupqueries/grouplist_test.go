package groupqueries_test

import (
	"testing"

	"github.com/dalemusser/eventhub/internal/app/store/queries/groupqueries"
	"github.com/dalemusser/eventhub/internal/app/system/paging"
	"github.com/dalemusser/eventhub/internal/app/system/visibility"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"github.com/dalemusser/eventhub/internal/testutil"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
)

func names(items []groupqueries.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

func sameNames(got []groupqueries.Item, want ...string) bool {
	n := names(got)
	if len(n) != len(want) {
		return false
	}
	for i := range n {
		if n[i] != want[i] {
			return false
		}
	}
	return true
}

func TestList_Visibility(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fx.CreateUser(ctx, "user@example.com", models.RoleUser)
	admin := fx.CreateUser(ctx, "admin@example.com", models.RoleAdmin)

	fx.CreateGroup(ctx, "Bakers", true, admin.ID)
	fx.CreateGroup(ctx, "Archers", false, admin.ID)
	climbers := fx.CreateGroup(ctx, "Climbers", false, admin.ID)
	fx.AddMember(ctx, climbers.ID, user.ID, models.GroupRoleAdmin)
	fx.AddMember(ctx, climbers.ID, admin.ID, models.GroupRoleMember)

	page := paging.Page{Limit: 10}

	res, err := groupqueries.List(ctx, db, visibility.Context{UserID: user.ID, Role: models.RoleUser, Authenticated: true}, groupqueries.Filter{}, page)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !sameNames(res.Items, "Bakers", "Climbers") {
		t.Errorf("expected [Bakers Climbers], got %v", names(res.Items))
	}
	for _, it := range res.Items {
		if it.Name == "Climbers" {
			if it.MemberCount != 2 || it.MyRole != models.GroupRoleAdmin {
				t.Errorf("unexpected Climbers row %+v", it)
			}
		} else if it.MyRole != "" {
			t.Errorf("expected no role in %s, got %q", it.Name, it.MyRole)
		}
	}

	res, err = groupqueries.List(ctx, db, visibility.Context{UserID: admin.ID, Role: models.RoleAdmin, Authenticated: true}, groupqueries.Filter{}, page)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !sameNames(res.Items, "Archers", "Bakers", "Climbers") {
		t.Errorf("expected admin to see all groups, got %v", names(res.Items))
	}

	res, err = groupqueries.List(ctx, db, visibility.Anonymous(), groupqueries.Filter{}, page)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(res.Items) != 0 {
		t.Errorf("expected nothing for anonymous, got %v", names(res.Items))
	}
}

func TestList_FiltersAndPaging(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fx.CreateUser(ctx, "user@example.com", models.RoleUser)
	vc := visibility.Context{UserID: user.ID, Role: models.RoleUser, Authenticated: true}

	fx.CreateGroup(ctx, "Chess Club", true, user.ID)
	chorus := fx.CreateGroup(ctx, "Chorus", true, user.ID)
	fx.CreateGroup(ctx, "Cycling", true, user.ID)
	fx.CreateGroup(ctx, "Darts", true, user.ID)
	fx.AddMember(ctx, chorus.ID, user.ID, models.GroupRoleMember)

	res, err := groupqueries.List(ctx, db, vc, groupqueries.Filter{Search: "ch"}, paging.Page{Limit: 10})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !sameNames(res.Items, "Chess Club", "Chorus") {
		t.Errorf("expected prefix matches, got %v", names(res.Items))
	}

	res, err = groupqueries.List(ctx, db, vc, groupqueries.Filter{MineOnly: true}, paging.Page{Limit: 10})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !sameNames(res.Items, "Chorus") {
		t.Errorf("expected only joined groups, got %v", names(res.Items))
	}

	first, err := groupqueries.List(ctx, db, vc, groupqueries.Filter{}, paging.Page{Limit: 3})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(first.Items) != 3 || first.NextCursor == "" {
		t.Fatalf("expected a full first page with a cursor, got %v / %q", names(first.Items), first.NextCursor)
	}
	c, ok := wafflemongo.DecodeCursor(first.NextCursor)
	if !ok {
		t.Fatal("expected decodable cursor")
	}
	second, err := groupqueries.List(ctx, db, vc, groupqueries.Filter{}, paging.Page{Limit: 3, Cursor: &c})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !sameNames(second.Items, "Darts") || second.NextCursor != "" {
		t.Errorf("expected last page [Darts], got %v / %q", names(second.Items), second.NextCursor)
	}
}
