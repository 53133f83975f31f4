package auth

import (
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/csrf"
)

const (
	// CSRFHeader carries the token both ways: responses expose it and
	// unsafe requests must send it back (or use the CSRFField form field).
	CSRFHeader = "X-CSRF-Token"
	CSRFField  = "csrf_token"
)

// deriveCSRFKey gives the CSRF cookie its own 32-byte key so it never shares
// a MAC key with the session cookie.
func deriveCSRFKey(sessionKey string) []byte {
	sum := sha256.Sum256([]byte("eventhub-csrf:" + sessionKey))
	return sum[:]
}

// CSRF guards cookie-authenticated routes with gorilla/csrf. Every response
// carries the current token in CSRFHeader; POSTs without a matching token, or
// from another origin, go to onFailure.
func (sm *SessionManager) CSRF(onFailure http.Handler) func(http.Handler) http.Handler {
	protect := csrf.Protect(sm.csrfKey,
		csrf.CookieName(sm.name+"-csrf"),
		csrf.Domain(sm.domain),
		csrf.Path("/"),
		csrf.Secure(sm.secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.RequestHeader(CSRFHeader),
		csrf.FieldName(CSRFField),
		csrf.ErrorHandler(onFailure),
	)
	return func(next http.Handler) http.Handler {
		guarded := protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(CSRFHeader, csrf.Token(r))
			next.ServeHTTP(w, r)
		}))
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Without TLS the Referer check would reject every request.
			if !sm.secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			guarded.ServeHTTP(w, r)
		})
	}
}

// CSRFToken returns the token for r, or "" outside the CSRF middleware.
func CSRFToken(r *http.Request) string {
	return csrf.Token(r)
}

// CSRFFailure describes why the middleware refused r.
func CSRFFailure(r *http.Request) error {
	return csrf.FailureReason(r)
}
