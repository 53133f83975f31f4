// internal/app/features/groups/handler.go
package groups

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	eventstore "github.com/dalemusser/eventhub/internal/app/store/events"
	groupstore "github.com/dalemusser/eventhub/internal/app/store/groups"
	membershipstore "github.com/dalemusser/eventhub/internal/app/store/memberships"
	"github.com/dalemusser/eventhub/internal/app/store/queries/visibilityqueries"
	subscriptionstore "github.com/dalemusser/eventhub/internal/app/store/subscriptions"
	userstore "github.com/dalemusser/eventhub/internal/app/store/users"
	"github.com/dalemusser/eventhub/internal/app/system/auditlog"
	"github.com/dalemusser/eventhub/internal/app/system/authz"
	"github.com/dalemusser/eventhub/internal/app/system/gates"
	"github.com/dalemusser/eventhub/internal/app/system/inputval"
	"github.com/dalemusser/eventhub/internal/app/system/visibility"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the groups feature.
type Handler struct {
	DB            *mongo.Database
	Groups        *groupstore.Store
	Members       *membershipstore.Store
	Events        *eventstore.Store
	Subscriptions *subscriptionstore.Store
	Users         *userstore.Store
	Lookup        *visibilityqueries.Lookup
	Gates         *gates.Gatekeeper
	Admins        *authz.GroupAdmins
	Audit         *auditlog.Logger
	ErrLog        *uierrors.ErrorLogger
	Log           *zap.Logger
}

func NewHandler(db *mongo.Database, gk *gates.Gatekeeper, admins *authz.GroupAdmins, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:            db,
		Groups:        groupstore.New(db),
		Members:       membershipstore.New(db),
		Events:        eventstore.New(db),
		Subscriptions: subscriptionstore.New(db),
		Users:         userstore.New(db),
		Lookup:        visibilityqueries.NewLookup(db),
		Gates:         gk,
		Admins:        admins,
		Audit:         audit,
		ErrLog:        errLog,
		Log:           logger,
	}
}

type groupResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Visible     bool             `json:"visible"`
	MyRole      models.GroupRole `json:"my_role,omitempty"`
	CanManage   bool             `json:"can_manage"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
}

func toResponse(g models.Group, myRole models.GroupRole, canManage bool) groupResponse {
	return groupResponse{
		ID:          g.ID.Hex(),
		Name:        g.Name,
		Description: g.Description,
		Visible:     g.Visible,
		MyRole:      myRole,
		CanManage:   canManage,
		CreatedAt:   g.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:   g.UpdatedAt.UTC().Format(timeLayout),
	}
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

// loadGroup resolves the {id} URL parameter to a group the caller may see.
// Groups the caller cannot discover are reported as not found, the same as
// groups that do not exist.
func (h *Handler) loadGroup(ctx context.Context, w http.ResponseWriter, r *http.Request, sc authz.SessionContext) (models.Group, bool) {
	gid, ok := inputval.ObjectIDParam(r, "id")
	if !ok {
		uierrors.NotFound(w, "Group")
		return models.Group{}, false
	}

	visible, err := visibility.CanSeeGroup(ctx, h.Lookup, visibility.For(sc), gid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "group visibility check failed", err, "")
		return models.Group{}, false
	}
	if !visible {
		uierrors.NotFound(w, "Group")
		return models.Group{}, false
	}

	g, err := h.Groups.GetByID(ctx, gid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.NotFound(w, "Group")
		return models.Group{}, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load group failed", err, "")
		return models.Group{}, false
	}
	return g, true
}

// requireGroupAdmin writes 403 unless the caller administers g.
func (h *Handler) requireGroupAdmin(ctx context.Context, w http.ResponseWriter, sc authz.SessionContext, g models.Group) bool {
	if h.Admins.CallerAdministersGroup(ctx, sc, g.ID) {
		return true
	}
	uierrors.Forbidden(w, "Only group administrators can do that.")
	return false
}
