// Package errors writes the JSON error responses shared by every feature.
//
// Import it as uierrors to keep the standard errors package usable.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/eventhub/internal/app/system/authz"
)

const (
	MsgSignIn       = "Please sign in to continue."
	MsgAccessDenied = "Access denied."
	MsgDeactivated  = "Your account is not active."
)

type body struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Write writes a {"error","message"} body.
func Write(w http.ResponseWriter, status int, code, msg string) {
	WriteJSON(w, status, body{Error: code, Message: msg})
}

func Unauthorized(w http.ResponseWriter) {
	Write(w, http.StatusUnauthorized, "unauthorized", MsgSignIn)
}

// Forbidden uses MsgAccessDenied when msg is empty.
func Forbidden(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = MsgAccessDenied
	}
	Write(w, http.StatusForbidden, "forbidden", msg)
}

// NotFound is also used for objects the caller may not discover, so hidden
// groups and events do not reveal that they exist.
func NotFound(w http.ResponseWriter, what string) {
	Write(w, http.StatusNotFound, "not_found", what+" not found.")
}

func BadRequest(w http.ResponseWriter, msg string) {
	Write(w, http.StatusBadRequest, "bad_request", msg)
}

func Conflict(w http.ResponseWriter, msg string) {
	Write(w, http.StatusConflict, "conflict", msg)
}

// WriteAuthz maps a gate failure to 401 or 403 and reports whether err was
// one. The caller's actual role is never echoed.
func WriteAuthz(w http.ResponseWriter, err error) bool {
	switch {
	case stderrors.Is(err, authz.ErrAuthenticationRequired):
		Unauthorized(w)
	case stderrors.Is(err, authz.ErrAccountDeactivated):
		Write(w, http.StatusForbidden, "account_deactivated", MsgDeactivated)
	case stderrors.Is(err, authz.ErrInsufficientPermissions):
		Forbidden(w, "")
	default:
		return false
	}
	return true
}
