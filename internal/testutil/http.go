package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"github.com/dalemusser/eventhub/internal/domain/models"
)

// SessionFor returns the cookie identity for a stored user.
func SessionFor(u models.User) *auth.SessionUser {
	return &auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  string(u.Role),
	}
}

// NewAuthenticatedRequest creates a request with u in context.
func NewAuthenticatedRequest(method, target string, u models.User) *http.Request {
	return auth.WithTestUser(httptest.NewRequest(method, target, nil), SessionFor(u))
}

// NewFormRequest creates a POST request carrying form values, with u in
// context when u is non-nil.
func NewFormRequest(target string, form url.Values, u *models.User) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if u != nil {
		req = auth.WithTestUser(req, SessionFor(*u))
	}
	return req
}

// DecodeJSON decodes the recorder body into v, failing the test on error.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}
