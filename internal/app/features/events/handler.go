// internal/app/features/events/handler.go
package events

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	eventstore "github.com/dalemusser/eventhub/internal/app/store/events"
	groupstore "github.com/dalemusser/eventhub/internal/app/store/groups"
	membershipstore "github.com/dalemusser/eventhub/internal/app/store/memberships"
	"github.com/dalemusser/eventhub/internal/app/store/queries/visibilityqueries"
	subscriptionstore "github.com/dalemusser/eventhub/internal/app/store/subscriptions"
	"github.com/dalemusser/eventhub/internal/app/system/auditlog"
	"github.com/dalemusser/eventhub/internal/app/system/authz"
	"github.com/dalemusser/eventhub/internal/app/system/feedtoken"
	"github.com/dalemusser/eventhub/internal/app/system/gates"
	"github.com/dalemusser/eventhub/internal/app/system/inputval"
	"github.com/dalemusser/eventhub/internal/app/system/visibility"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the events feature.
type Handler struct {
	DB            *mongo.Database
	Events        *eventstore.Store
	Groups        *groupstore.Store
	Members       *membershipstore.Store
	Subscriptions *subscriptionstore.Store
	Lookup        *visibilityqueries.Lookup
	Gates         *gates.Gatekeeper
	Admins        *authz.GroupAdmins
	Feeds         *feedtoken.Manager // nil disables /calendar feeds
	BaseURL       string
	Audit         *auditlog.Logger
	ErrLog        *uierrors.ErrorLogger
	Log           *zap.Logger
}

func NewHandler(
	db *mongo.Database,
	gk *gates.Gatekeeper,
	admins *authz.GroupAdmins,
	feeds *feedtoken.Manager,
	baseURL string,
	audit *auditlog.Logger,
	errLog *uierrors.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		DB:            db,
		Events:        eventstore.New(db),
		Groups:        groupstore.New(db),
		Members:       membershipstore.New(db),
		Subscriptions: subscriptionstore.New(db),
		Lookup:        visibilityqueries.NewLookup(db),
		Gates:         gk,
		Admins:        admins,
		Feeds:         feeds,
		BaseURL:       strings.TrimRight(baseURL, "/"),
		Audit:         audit,
		ErrLog:        errLog,
		Log:           logger,
	}
}

// eventAccess is what the caller may do with one event.
type eventAccess struct {
	Event     models.Event
	CanSee    bool // discoverable through the visibility rules
	CanManage bool // administers the event's group
}

// loadEvent resolves the {id} URL parameter. The caller gets the event if
// it is discoverable to them or they administer its group; anything else is
// reported as not found.
func (h *Handler) loadEvent(ctx context.Context, w http.ResponseWriter, r *http.Request, sc authz.SessionContext) (eventAccess, bool) {
	eid, ok := inputval.ObjectIDParam(r, "id")
	if !ok {
		uierrors.NotFound(w, "Event")
		return eventAccess{}, false
	}

	ev, err := h.Events.GetByID(ctx, eid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.NotFound(w, "Event")
		return eventAccess{}, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load event failed", err, "")
		return eventAccess{}, false
	}

	canSee, err := visibility.CanSeeEvent(ctx, h.Lookup, visibility.For(sc), ev)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "event visibility check failed", err, "")
		return eventAccess{}, false
	}
	acc := eventAccess{Event: ev, CanSee: canSee}
	acc.CanManage = h.Admins.CallerAdministersGroup(ctx, sc, ev.GroupID)
	if !acc.CanSee && !acc.CanManage {
		uierrors.NotFound(w, "Event")
		return eventAccess{}, false
	}
	return acc, true
}
