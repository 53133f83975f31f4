package register_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	"github.com/dalemusser/eventhub/internal/app/features/register"
	userstore "github.com/dalemusser/eventhub/internal/app/store/users"
	"github.com/dalemusser/eventhub/internal/app/system/auditlog"
	"github.com/dalemusser/eventhub/internal/app/system/indexes"
	"github.com/dalemusser/eventhub/internal/app/system/ratelimit"
	"github.com/dalemusser/eventhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestHandler(t *testing.T) (*register.Handler, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	limiter := ratelimit.NewAuthLimiterWithConfig(1000, time.Minute, 1000, time.Minute)
	t.Cleanup(limiter.Close)
	return register.NewHandler(db, limiter, bcrypt.MinCost, auditlog.NewNopLogger(), uierrors.NewErrorLogger(zap.NewNop()), zap.NewNop()), db
}

func post(h *register.Handler, form url.Values) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.HandleRegister(rec, testutil.NewFormRequest("/register", form, nil))
	return rec
}

func TestHandleRegister_CreatesPendingAccount(t *testing.T) {
	handler, db := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := post(handler, url.Values{
		"email":     {" Grace@Example.com "},
		"full_name": {"  Grace   Hopper "},
		"password":  {"cobol-forever"},
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d: %s", http.StatusAccepted, rec.Code, rec.Body.String())
	}

	u, err := userstore.New(db).GetByEmail(ctx, "grace@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if u.Active || !u.Pending() {
		t.Errorf("expected inactive pending account, got active=%v approved=%v", u.Active, u.ApprovedAt)
	}
	if u.FullName != "Grace Hopper" {
		t.Errorf("expected normalized name, got %q", u.FullName)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("cobol-forever")) != nil {
		t.Error("expected stored bcrypt hash of the password")
	}
}

func TestHandleRegister_Validation(t *testing.T) {
	handler, _ := newTestHandler(t)

	tests := []struct {
		name string
		form url.Values
	}{
		{"missing email", url.Values{"full_name": {"A"}, "password": {"longenough"}}},
		{"bad email", url.Values{"email": {"nope"}, "full_name": {"A"}, "password": {"longenough"}}},
		{"missing name", url.Values{"email": {"a@example.com"}, "password": {"longenough"}}},
		{"short password", url.Values{"email": {"a@example.com"}, "full_name": {"A"}, "password": {"short"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := post(handler, tt.form); rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
		})
	}
}

func TestHandleRegister_Duplicate(t *testing.T) {
	handler, _ := newTestHandler(t)
	form := url.Values{"email": {"dup@example.com"}, "full_name": {"Dup"}, "password": {"longenough"}}

	if rec := post(handler, form); rec.Code != http.StatusAccepted {
		t.Fatalf("expected first registration accepted, got %d", rec.Code)
	}
	if rec := post(handler, form); rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}
