package login_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	"github.com/dalemusser/eventhub/internal/app/features/login"
	"github.com/dalemusser/eventhub/internal/app/store/audit"
	"github.com/dalemusser/eventhub/internal/app/system/auditlog"
	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"github.com/dalemusser/eventhub/internal/app/system/ratelimit"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"github.com/dalemusser/eventhub/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*login.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	sessionMgr, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	limiter := ratelimit.NewAuthLimiterWithConfig(1000, time.Minute, 3, time.Minute)
	t.Cleanup(limiter.Close)

	handler := login.NewHandler(db, sessionMgr, limiter, auditlog.NewNopLogger(), uierrors.NewErrorLogger(logger), logger)
	return handler, testutil.NewFixtures(t, db)
}

func post(h *login.Handler, email, password string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, testutil.NewFormRequest("/login", url.Values{"email": {email}, "password": {password}}, nil))
	return rec
}

func TestHandleLogin_Success(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreatePasswordUser(ctx, "ada@example.com", "correct horse", models.RoleUser)

	rec := post(handler, "  ADA@example.com ", "correct horse")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" {
			found = true
		}
	}
	if !found {
		t.Error("expected session cookie to be set")
	}

	var body struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	}
	testutil.DecodeJSON(t, rec, &body)
	if body.ID != u.ID.Hex() || body.Role != "USER" {
		t.Errorf("unexpected body %+v", body)
	}

	logins, err := handler.Logins.Recent(ctx, u.ID, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(logins) != 1 || logins[0].Provider != models.AuthMethodPassword {
		t.Errorf("expected one password login recorded, got %+v", logins)
	}
}

func TestHandleLogin_Failures(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreatePasswordUser(ctx, "ada@example.com", "correct horse", models.RoleUser)
	pending := fixtures.CreatePendingUser(ctx, "new@example.com", time.Time{})
	fixtures.SetPassword(ctx, &pending, "pending pass")
	gone := fixtures.CreateInactiveUser(ctx, "gone@example.com")
	fixtures.SetPassword(ctx, &gone, "gone pass")
	fixtures.CreateUser(ctx, "google@example.com", models.RoleUser)

	tests := []struct {
		name     string
		email    string
		password string
		status   int
		code     string
	}{
		{"missing password", "ada@example.com", "", http.StatusBadRequest, "bad_request"},
		{"unknown email", "who@example.com", "whatever", http.StatusUnauthorized, "invalid_credentials"},
		{"wrong password", "ada@example.com", "wrong", http.StatusUnauthorized, "invalid_credentials"},
		{"no password set", "google@example.com", "anything", http.StatusUnauthorized, "invalid_credentials"},
		{"pending", "new@example.com", "pending pass", http.StatusForbidden, "account_pending"},
		{"deactivated", "gone@example.com", "gone pass", http.StatusForbidden, "account_deactivated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(handler, tt.email, tt.password)
			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
			var body struct {
				Error string `json:"error"`
			}
			testutil.DecodeJSON(t, rec, &body)
			if body.Error != tt.code {
				t.Errorf("expected error %q, got %q", tt.code, body.Error)
			}
		})
	}
}

func TestHandleLogin_RateLimited(t *testing.T) {
	handler, _ := newTestHandler(t)

	for i := 0; i < 3; i++ {
		post(handler, "target@example.com", "guess")
	}
	if rec := post(handler, "target@example.com", "guess"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected status %d, got %d", http.StatusTooManyRequests, rec.Code)
	}
}

func TestHandleLogin_Audited(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sessionMgr, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	limiter := ratelimit.NewAuthLimiterWithConfig(1000, time.Minute, 100, time.Minute)
	t.Cleanup(limiter.Close)

	auditStore := audit.New(db)
	auditLog := auditlog.New(auditStore, logger, auditlog.Config{Auth: auditlog.DB, Admin: auditlog.DB})
	handler := login.NewHandler(db, sessionMgr, limiter, auditLog, uierrors.NewErrorLogger(logger), logger)

	u := testutil.NewFixtures(t, db).CreatePasswordUser(ctx, "ada@example.com", "correct horse", models.RoleUser)

	post(handler, "ada@example.com", "wrong")
	post(handler, "nobody@example.com", "wrong")
	post(handler, "ada@example.com", "correct horse")

	tests := []struct {
		eventType string
		want      int64
	}{
		{audit.EventLoginFailedWrongPassword, 1},
		{audit.EventLoginFailedUserNotFound, 1},
		{audit.EventLoginSuccess, 1},
	}
	for _, tt := range tests {
		n, err := auditStore.Count(ctx, audit.QueryFilter{EventType: tt.eventType})
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != tt.want {
			t.Errorf("expected %d %s events, got %d", tt.want, tt.eventType, n)
		}
	}

	mine, err := auditStore.GetByUser(ctx, u.ID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("expected 2 events for the user, got %d", len(mine))
	}
}
