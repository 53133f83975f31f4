package authgoogle_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dalemusser/eventhub/internal/app/features/authgoogle"
	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	userstore "github.com/dalemusser/eventhub/internal/app/store/users"
	"github.com/dalemusser/eventhub/internal/app/system/auditlog"
	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"github.com/dalemusser/eventhub/internal/app/system/indexes"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"github.com/dalemusser/eventhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type fakeGoogle struct {
	ID       string
	Email    string
	Name     string
	Verified bool
}

// newFakeGoogle serves the token and userinfo endpoints the handler calls.
func newFakeGoogle(t *testing.T, who *fakeGoogle) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-access-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":             who.ID,
			"email":          who.Email,
			"name":           who.Name,
			"verified_email": who.Verified,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestHandler(t *testing.T, who *fakeGoogle) (*authgoogle.Handler, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, logger); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	sessionMgr, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}

	h := authgoogle.NewHandler(db, sessionMgr, auditlog.NewNopLogger(), uierrors.NewErrorLogger(logger),
		"test-client-id", "test-client-secret", "http://localhost:8080", logger)

	srv := newFakeGoogle(t, who)
	h.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	h.UserInfoURL = srv.URL + "/userinfo"
	return h, db
}

// callback runs the full round trip: a state is issued through ServeLogin
// and then handed back to ServeCallback.
func callback(t *testing.T, h *authgoogle.Handler, returnURL string) *httptest.ResponseRecorder {
	t.Helper()
	login := httptest.NewRecorder()
	h.ServeLogin(login, httptest.NewRequest(http.MethodGet, "/auth/google?return="+url.QueryEscape(returnURL), nil))
	if login.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected login redirect, got %d", login.Code)
	}
	loc, err := url.Parse(login.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad Location header: %v", err)
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatal("expected state in authorization URL")
	}

	rec := httptest.NewRecorder()
	target := "/auth/google/callback?state=" + url.QueryEscape(state) + "&code=test-code"
	h.ServeCallback(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestIsConfigured(t *testing.T) {
	h := &authgoogle.Handler{ClientID: "id", ClientSecret: "secret"}
	if !h.IsConfigured() {
		t.Error("expected handler with client id and secret to be configured")
	}
	h.ClientSecret = ""
	if h.IsConfigured() {
		t.Error("expected handler without secret to be unconfigured")
	}
}

func TestServeLogin_NotConfigured(t *testing.T) {
	h, _ := newTestHandler(t, &fakeGoogle{})
	h.ClientID = ""

	rec := httptest.NewRecorder()
	h.ServeLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}

func TestServeCallback_InvalidState(t *testing.T) {
	h, _ := newTestHandler(t, &fakeGoogle{})

	rec := httptest.NewRecorder()
	h.ServeCallback(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=bogus&code=x", nil))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "auth_status=invalid_state") {
		t.Errorf("expected invalid_state redirect, got %q", loc)
	}
}

func TestServeCallback_NewAccountIsPending(t *testing.T) {
	h, db := newTestHandler(t, &fakeGoogle{ID: "g-100", Email: "New@Example.com", Name: "New Person", Verified: true})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := callback(t, h, "/events")
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "auth_status=account_pending") {
		t.Errorf("expected account_pending redirect, got %q", loc)
	}

	u, err := userstore.New(db).GetByGoogleID(ctx, "g-100")
	if err != nil {
		t.Fatalf("GetByGoogleID failed: %v", err)
	}
	if u.Active || u.Email != "new@example.com" {
		t.Errorf("expected inactive account for new@example.com, got active=%v email=%q", u.Active, u.Email)
	}
}

func TestServeCallback_LinksExistingAccount(t *testing.T) {
	h, db := newTestHandler(t, &fakeGoogle{ID: "g-200", Email: "ada@example.com", Name: "Ada", Verified: true})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures := testutil.NewFixtures(t, db)
	existing := fixtures.CreateUser(ctx, "ada@example.com", models.RoleUser)

	rec := callback(t, h, "/events")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status %d, got %d: %s", http.StatusSeeOther, rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/events" {
		t.Errorf("expected redirect to /events, got %q", loc)
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

	linked, err := userstore.New(db).GetByGoogleID(ctx, "g-200")
	if err != nil {
		t.Fatalf("GetByGoogleID failed: %v", err)
	}
	if linked.ID != existing.ID {
		t.Errorf("expected existing account %s to be linked, got %s", existing.ID.Hex(), linked.ID.Hex())
	}
}

func TestServeCallback_StateIsSingleUse(t *testing.T) {
	h, db := newTestHandler(t, &fakeGoogle{ID: "g-300", Email: "once@example.com", Verified: true})
	ctx, cancel := testutil.TestContext()
	defer cancel()
	testutil.NewFixtures(t, db).CreateUser(ctx, "once@example.com", models.RoleUser)

	login := httptest.NewRecorder()
	h.ServeLogin(login, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	loc, _ := url.Parse(login.Header().Get("Location"))
	target := "/auth/google/callback?state=" + url.QueryEscape(loc.Query().Get("state")) + "&code=c"

	first := httptest.NewRecorder()
	h.ServeCallback(first, httptest.NewRequest(http.MethodGet, target, nil))
	if got := first.Header().Get("Location"); got != "/" {
		t.Fatalf("expected first callback to sign in and redirect to /, got %q", got)
	}

	second := httptest.NewRecorder()
	h.ServeCallback(second, httptest.NewRequest(http.MethodGet, target, nil))
	if got := second.Header().Get("Location"); !strings.Contains(got, "invalid_state") {
		t.Errorf("expected replayed state to be rejected, got %q", got)
	}
}

func TestServeCallback_UnverifiedEmail(t *testing.T) {
	h, _ := newTestHandler(t, &fakeGoogle{ID: "g-400", Email: "who@example.com", Verified: false})

	rec := callback(t, h, "")
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "email_unverified") {
		t.Errorf("expected email_unverified redirect, got %q", loc)
	}
}
