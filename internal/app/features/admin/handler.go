// internal/app/features/admin/handler.go
package admin

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	"github.com/dalemusser/eventhub/internal/app/store/audit"
	loginstore "github.com/dalemusser/eventhub/internal/app/store/logins"
	membershipstore "github.com/dalemusser/eventhub/internal/app/store/memberships"
	subscriptionstore "github.com/dalemusser/eventhub/internal/app/store/subscriptions"
	userstore "github.com/dalemusser/eventhub/internal/app/store/users"
	"github.com/dalemusser/eventhub/internal/app/system/auditlog"
	"github.com/dalemusser/eventhub/internal/app/system/gates"
	"github.com/dalemusser/eventhub/internal/app/system/inputval"
	"github.com/dalemusser/eventhub/internal/app/system/workers"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the platform administration endpoints. Every handler
// requires the ADMIN role through the gate.
type Handler struct {
	DB            *mongo.Database
	Users         *userstore.Store
	Members       *membershipstore.Store
	Subscriptions *subscriptionstore.Store
	Logins        *loginstore.Store
	AuditEvents   *audit.Store
	Cleanup       *workers.PendingAccountCleanup
	Gates         *gates.Gatekeeper
	Audit         *auditlog.Logger
	ErrLog        *uierrors.ErrorLogger
	Log           *zap.Logger
}

// NewHandler constructs the admin handler. cleanup may be nil, in which
// case the manual cleanup endpoint reports 503.
func NewHandler(db *mongo.Database, gk *gates.Gatekeeper, cleanup *workers.PendingAccountCleanup, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:            db,
		Users:         userstore.New(db),
		Members:       membershipstore.New(db),
		Subscriptions: subscriptionstore.New(db),
		Logins:        loginstore.New(db),
		AuditEvents:   audit.New(db),
		Cleanup:       cleanup,
		Gates:         gk,
		Audit:         auditLog,
		ErrLog:        errLog,
		Log:           logger,
	}
}

type userResponse struct {
	models.User
	Status string `json:"status"`
}

func toResponse(u models.User) userResponse {
	return userResponse{User: u, Status: status(u)}
}

func status(u models.User) string {
	switch {
	case u.Pending():
		return userstore.StatusPending
	case u.Active:
		return userstore.StatusActive
	default:
		return userstore.StatusInactive
	}
}

// loadTarget resolves {id}. It writes 404 for a bad or unknown id.
func (h *Handler) loadTarget(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.User, bool) {
	id, ok := inputval.ObjectIDParam(r, "id")
	if !ok {
		uierrors.NotFound(w, "User")
		return models.User{}, false
	}
	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.NotFound(w, "User")
		return models.User{}, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user failed", err, "")
		return models.User{}, false
	}
	return u, true
}

// guardLastAdmin refuses to take away the last active platform admin. It
// writes 409 and returns false when target is that admin.
func (h *Handler) guardLastAdmin(ctx context.Context, w http.ResponseWriter, r *http.Request, target models.User) bool {
	if target.Role != models.RoleAdmin || !target.Active {
		return true
	}
	n, err := h.Users.CountAdmins(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count admins failed", err, "")
		return false
	}
	if n <= 1 {
		uierrors.Write(w, http.StatusConflict, "last_admin", "There must be at least one active admin.")
		return false
	}
	return true
}
