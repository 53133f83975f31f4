package errors_test

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	"github.com/dalemusser/eventhub/internal/app/system/authz"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestWriteAuthz(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"unauthenticated", authz.ErrAuthenticationRequired, http.StatusUnauthorized, uierrors.MsgSignIn},
		{"deactivated", fmt.Errorf("gate: %w", authz.ErrAccountDeactivated), http.StatusForbidden, uierrors.MsgDeactivated},
		{"insufficient", &authz.Error{Kind: authz.KindInsufficientPermissions, Required: models.RoleAdmin, Actual: models.RoleUser}, http.StatusForbidden, uierrors.MsgAccessDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if !uierrors.WriteAuthz(rec, tt.err) {
				t.Fatal("expected authz error to be handled")
			}
			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
			if got := decode(t, rec)["message"]; got != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, got)
			}
		})
	}
}

func TestWriteAuthz_DoesNotLeakRole(t *testing.T) {
	rec := httptest.NewRecorder()
	uierrors.WriteAuthz(rec, &authz.Error{Kind: authz.KindInsufficientPermissions, Required: models.RoleAdmin, Actual: models.RoleUser})
	if strings.Contains(rec.Body.String(), "USER") {
		t.Errorf("expected actual role to stay out of the body, got %s", rec.Body.String())
	}
}

func TestWriteAuthz_OtherError(t *testing.T) {
	rec := httptest.NewRecorder()
	if uierrors.WriteAuthz(rec, stderrors.New("boom")) {
		t.Error("expected non-authz error to be left to the caller")
	}
	if rec.Body.Len() != 0 {
		t.Error("expected nothing written")
	}
}

func TestLogServerError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	el := uierrors.NewErrorLogger(zap.New(core))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	el.LogServerError(rec, req, "list events failed", stderrors.New("socket closed"), "")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "socket closed") {
		t.Error("expected internal error text to stay out of the response")
	}
	if logs.FilterMessage("list events failed").Len() != 1 {
		t.Errorf("expected one log entry, got %d", logs.Len())
	}
}
