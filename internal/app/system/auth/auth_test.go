package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"go.uber.org/zap"
)

const testKey = "0123456789abcdef0123456789abcdef"

func newManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(testKey, "", "", false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	return sm
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	if _, err := auth.NewSessionManager("", "", "", true, zap.NewNop()); err == nil {
		t.Error("expected error for empty key in production")
	}
	if _, err := auth.NewSessionManager("", "", "", false, zap.NewNop()); err != nil {
		t.Errorf("expected random dev key, got %v", err)
	}
}

func TestSignInRoundTrip(t *testing.T) {
	sm := newManager(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	want := auth.SessionUser{ID: "64b7f0c2a1b2c3d4e5f60718", Name: "Ada", Email: "ada@example.com", Role: "USER"}
	if err := sm.SignIn(rec, req, want); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	var got *auth.SessionUser
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = auth.Caller(r)
	}))
	next := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	for _, c := range cookies {
		next.AddCookie(c)
	}
	h.ServeHTTP(httptest.NewRecorder(), next)

	if got == nil {
		t.Fatal("expected user loaded from cookie")
	}
	if *got != want {
		t.Errorf("expected %+v, got %+v", want, *got)
	}
}

func TestLoadSessionUser_BadCookie(t *testing.T) {
	sm := newManager(t)

	called := false
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := auth.CurrentUser(r); ok {
			t.Error("expected no user for a tampered cookie")
		}
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.DefaultSessionName, Value: "tampered"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Error("expected next handler to run")
	}
}

func TestSignOut(t *testing.T) {
	sm := newManager(t)
	rec := httptest.NewRecorder()
	if err := sm.SignOut(rec, httptest.NewRequest(http.MethodPost, "/logout", nil)); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.DefaultSessionName && c.MaxAge >= 0 {
			t.Errorf("expected expired cookie, got MaxAge %d", c.MaxAge)
		}
	}
}

func TestRequireSignedIn(t *testing.T) {
	sm := newManager(t)
	h := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		accept string
		user   *auth.SessionUser
		status int
	}{
		{"signed in", "", &auth.SessionUser{ID: "x"}, http.StatusNoContent},
		{"api anonymous", "application/json", nil, http.StatusUnauthorized},
		{"browser anonymous", "text/html", nil, http.StatusSeeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/events?upcoming=1", nil)
			req.Header.Set("Accept", tt.accept)
			if tt.user != nil {
				req = auth.WithTestUser(req, tt.user)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
			if tt.status == http.StatusSeeOther {
				loc := rec.Header().Get("Location")
				if !strings.HasPrefix(loc, "/login?return=") || !strings.Contains(loc, "%2Fevents") {
					t.Errorf("unexpected redirect %q", loc)
				}
			}
			if tt.status == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), "Please sign in to continue.") {
				t.Errorf("unexpected body %s", rec.Body.String())
			}
		})
	}
}
