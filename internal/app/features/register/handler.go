// internal/app/features/register/handler.go
package register

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	userstore "github.com/dalemusser/eventhub/internal/app/store/users"
	"github.com/dalemusser/eventhub/internal/app/system/auditlog"
	"github.com/dalemusser/eventhub/internal/app/system/inputval"
	"github.com/dalemusser/eventhub/internal/app/system/normalize"
	"github.com/dalemusser/eventhub/internal/app/system/ratelimit"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	Users      *userstore.Store
	Limiter    *ratelimit.AuthLimiter
	BcryptCost int
	Audit      *auditlog.Logger
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(db *mongo.Database, limiter *ratelimit.AuthLimiter, bcryptCost int, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Handler{
		Users:      userstore.New(db),
		Limiter:    limiter,
		BcryptCost: bcryptCost,
		Audit:      audit,
		ErrLog:     errLog,
		Log:        logger,
	}
}

type registerInput struct {
	Email    string `json:"email" label:"Email" validate:"required,email,max=254"`
	FullName string `json:"full_name" label:"Full name" validate:"required,max=200"`
	// bcrypt ignores bytes past 72.
	Password string `json:"password" label:"Password" validate:"required,min=8,max=72"`
}

type registerResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HandleRegister handles POST /register. The account is created inactive
// and waits for an administrator to approve it.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	in := registerInput{
		Email:    normalize.Email(r.FormValue("email")),
		FullName: normalize.Name(r.FormValue("full_name")),
		Password: r.FormValue("password"),
	}
	if msg := inputval.Check(in); msg != "" {
		uierrors.BadRequest(w, msg)
		return
	}
	if ok, msg := h.Limiter.Check(r, in.Email); !ok {
		uierrors.Write(w, http.StatusTooManyRequests, "rate_limited", msg)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), h.BcryptCost)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "register: hash password failed", err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: string(hash),
		AuthMethod:   models.AuthMethodPassword,
		Role:         models.RoleUser,
		Active:       false,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		uierrors.Conflict(w, "An account with this email already exists.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "register: create user failed", err, "")
		return
	}

	h.Log.Info("account registered, awaiting approval", zap.String("user_id", u.ID.Hex()))
	h.Audit.UserRegistered(ctx, r, u.ID, models.AuthMethodPassword)
	uierrors.WriteJSON(w, http.StatusAccepted, registerResponse{
		Status:  "pending",
		Message: "Your account has been created and is awaiting approval.",
	})
}
