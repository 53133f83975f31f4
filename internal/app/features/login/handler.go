// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	loginstore "github.com/dalemusser/eventhub/internal/app/store/logins"
	userstore "github.com/dalemusser/eventhub/internal/app/store/users"
	"github.com/dalemusser/eventhub/internal/app/system/auditlog"
	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"github.com/dalemusser/eventhub/internal/app/system/normalize"
	"github.com/dalemusser/eventhub/internal/app/system/ratelimit"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgBadCredentials = "Invalid email or password."
	msgPending        = "Your account is awaiting approval."
)

type Handler struct {
	Users      *userstore.Store
	Logins     *loginstore.Store
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.AuthLimiter
	Audit      *auditlog.Logger
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, limiter *ratelimit.AuthLimiter, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      userstore.New(db),
		Logins:     loginstore.New(db),
		SessionMgr: sessionMgr,
		Limiter:    limiter,
		Audit:      audit,
		ErrLog:     errLog,
		Log:        logger,
	}
}

type loginResponse struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
}

// HandleLogin handles POST /login with form fields email and password.
//
// Unknown emails, Google-only accounts and wrong passwords all get the same
// 401 so the response does not reveal which accounts exist.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	email := normalize.Email(r.FormValue("email"))
	password := r.FormValue("password")
	if email == "" || password == "" {
		uierrors.BadRequest(w, "Email and password are required.")
		return
	}
	if ok, msg := h.Limiter.Check(r, email); !ok {
		h.Audit.LoginFailedRateLimit(r.Context(), r, email)
		uierrors.Write(w, http.StatusTooManyRequests, "rate_limited", msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.Log.Info("login failed: unknown email", zap.String("email", email))
		h.Audit.LoginFailedUserNotFound(ctx, r, email)
		uierrors.Write(w, http.StatusUnauthorized, "invalid_credentials", msgBadCredentials)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "login: load user failed", err, "")
		return
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		h.Log.Info("login failed: bad password", zap.String("user_id", u.ID.Hex()))
		h.Audit.LoginFailedWrongPassword(ctx, r, u.ID, email)
		uierrors.Write(w, http.StatusUnauthorized, "invalid_credentials", msgBadCredentials)
		return
	}

	if !u.Active {
		if u.Pending() {
			h.Audit.LoginFailedUserPending(ctx, r, u.ID, models.AuthMethodPassword)
			uierrors.Write(w, http.StatusForbidden, "account_pending", msgPending)
		} else {
			h.Audit.LoginFailedUserDisabled(ctx, r, u.ID, models.AuthMethodPassword)
			uierrors.Write(w, http.StatusForbidden, "account_deactivated", uierrors.MsgDeactivated)
		}
		return
	}

	if err := h.SessionMgr.SignIn(w, r, auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  string(u.Role),
	}); err != nil {
		h.ErrLog.LogServerError(w, r, "login: save session failed", err, "")
		return
	}
	h.Limiter.ResetEmail(email)
	h.Log.Info("user signed in", zap.String("user_id", u.ID.Hex()), zap.String("method", models.AuthMethodPassword))
	h.Audit.LoginSuccess(ctx, r, u.ID, models.AuthMethodPassword, u.Email)
	if err := h.Logins.Record(ctx, r, u.ID, models.AuthMethodPassword); err != nil {
		h.Log.Warn("record login failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}

	uierrors.WriteJSON(w, http.StatusOK, loginResponse{ID: u.ID.Hex(), Email: u.Email, Name: u.FullName, Role: u.Role})
}
