// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/eventhub/internal/app/store/audit"
	"github.com/dalemusser/eventhub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category.
const (
	All = "all" // MongoDB + zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off"
)

// IsValidSetting reports whether s is one of All, DB, Log or Off.
func IsValidSetting(s string) bool {
	switch s {
	case All, DB, Log, Off:
		return true
	}
	return false
}

// Config holds audit logging configuration.
type Config struct {
	// Auth covers sign-in, sign-out and registration events.
	Auth string
	// Admin covers account administration plus group, membership and
	// event changes.
	Admin string
}

// Logger records audit events to MongoDB (via audit.Store) and zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// NewNopLogger returns a logger that records nothing, for tests.
func NewNopLogger() *Logger {
	return &Logger{zapLog: zap.NewNop(), config: Config{Auth: Off, Admin: Off}}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.GroupID != nil {
		fields = append(fields, zap.String("group_id", event.GroupID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records event according to its category's setting. A nil Logger is a
// no-op. Store failures are logged, never returned: an audit write must not
// fail the request it describes.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = All
	}
	if setting == Off || setting == "" {
		return
	}

	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if (setting == All || setting == DB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func authEvent(r *http.Request, eventType string, userID *primitive.ObjectID, success bool) audit.Event {
	return audit.Event{
		Category:  audit.CategoryAuth,
		EventType: eventType,
		UserID:    userID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
}

func adminEvent(r *http.Request, eventType string, actorID primitive.ObjectID) audit.Event {
	return audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		ActorID:   &actorID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful sign-in by password or Google.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, authMethod, email string) {
	e := authEvent(r, audit.EventLoginSuccess, &userID, true)
	e.Details = map[string]string{"auth_method": authMethod, "email": email}
	l.Log(ctx, e)
}

func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedEmail string) {
	e := authEvent(r, audit.EventLoginFailedUserNotFound, nil, false)
	e.FailureReason = "user not found"
	e.Details = map[string]string{"attempted_email": attemptedEmail}
	l.Log(ctx, e)
}

func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	e := authEvent(r, audit.EventLoginFailedWrongPassword, &userID, false)
	e.FailureReason = "wrong password"
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

func (l *Logger) LoginFailedUserDisabled(ctx context.Context, r *http.Request, userID primitive.ObjectID, authMethod string) {
	e := authEvent(r, audit.EventLoginFailedUserDisabled, &userID, false)
	e.FailureReason = "user disabled"
	e.Details = map[string]string{"auth_method": authMethod}
	l.Log(ctx, e)
}

func (l *Logger) LoginFailedUserPending(ctx context.Context, r *http.Request, userID primitive.ObjectID, authMethod string) {
	e := authEvent(r, audit.EventLoginFailedUserPending, &userID, false)
	e.FailureReason = "awaiting approval"
	e.Details = map[string]string{"auth_method": authMethod}
	l.Log(ctx, e)
}

// LoginFailedRateLimit logs a refused attempt. The limit is checked before
// the account is looked up, so only the email is known.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, email string) {
	e := authEvent(r, audit.EventLoginFailedRateLimit, nil, false)
	e.FailureReason = "rate limit exceeded"
	e.Details = map[string]string{"email": email, "path": r.URL.Path}
	l.Log(ctx, e)
}

// Logout takes the session's string id; an unparsable id is logged without
// a user.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr string) {
	var userID *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		userID = &oid
	}
	l.Log(ctx, authEvent(r, audit.EventLogout, userID, true))
}

// UserRegistered logs a new pending account, from the form or from Google.
func (l *Logger) UserRegistered(ctx context.Context, r *http.Request, userID primitive.ObjectID, authMethod string) {
	e := authEvent(r, audit.EventUserRegistered, &userID, true)
	e.Details = map[string]string{"auth_method": authMethod}
	l.Log(ctx, e)
}

// --- Account Administration ---

func (l *Logger) userEvent(ctx context.Context, r *http.Request, eventType string, actorID, targetUserID primitive.ObjectID, details map[string]string) {
	e := adminEvent(r, eventType, actorID)
	e.UserID = &targetUserID
	e.Details = details
	l.Log(ctx, e)
}

func (l *Logger) UserApproved(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID) {
	l.userEvent(ctx, r, audit.EventUserApproved, actorID, targetUserID, nil)
}

func (l *Logger) UserEnabled(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID) {
	l.userEvent(ctx, r, audit.EventUserEnabled, actorID, targetUserID, nil)
}

func (l *Logger) UserDisabled(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID) {
	l.userEvent(ctx, r, audit.EventUserDisabled, actorID, targetUserID, nil)
}

func (l *Logger) UserRoleChanged(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, oldRole, newRole string) {
	l.userEvent(ctx, r, audit.EventUserRoleChanged, actorID, targetUserID,
		map[string]string{"old_role": oldRole, "new_role": newRole})
}

func (l *Logger) UserDeleted(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, email string) {
	l.userEvent(ctx, r, audit.EventUserDeleted, actorID, targetUserID, map[string]string{"email": email})
}

// PendingAccountsPurged logs a cleanup run started by an admin.
func (l *Logger) PendingAccountsPurged(ctx context.Context, r *http.Request, actorID primitive.ObjectID, removed int64) {
	e := adminEvent(r, audit.EventPendingAccountsPurged, actorID)
	e.Details = map[string]string{"removed": strconv.FormatInt(removed, 10)}
	l.Log(ctx, e)
}

// --- Groups and Events ---

func groupEvent(r *http.Request, eventType string, actorID, groupID primitive.ObjectID, details map[string]string) audit.Event {
	e := adminEvent(r, eventType, actorID)
	e.GroupID = &groupID
	e.Details = details
	return e
}

func (l *Logger) GroupCreated(ctx context.Context, r *http.Request, actorID, groupID primitive.ObjectID, groupName string) {
	l.Log(ctx, groupEvent(r, audit.EventGroupCreated, actorID, groupID, map[string]string{"group_name": groupName}))
}

// GroupUpdated records which fields changed, comma separated.
func (l *Logger) GroupUpdated(ctx context.Context, r *http.Request, actorID, groupID primitive.ObjectID, fieldsChanged string) {
	l.Log(ctx, groupEvent(r, audit.EventGroupUpdated, actorID, groupID, map[string]string{"fields_changed": fieldsChanged}))
}

func (l *Logger) GroupDeleted(ctx context.Context, r *http.Request, actorID, groupID primitive.ObjectID, groupName string) {
	l.Log(ctx, groupEvent(r, audit.EventGroupDeleted, actorID, groupID, map[string]string{"group_name": groupName}))
}

// MemberAddedToGroup covers both joining (actor == target) and being added
// by a group admin.
func (l *Logger) MemberAddedToGroup(ctx context.Context, r *http.Request, actorID, targetUserID, groupID primitive.ObjectID, memberRole string) {
	e := groupEvent(r, audit.EventMemberAddedToGroup, actorID, groupID, map[string]string{"member_role": memberRole})
	e.UserID = &targetUserID
	l.Log(ctx, e)
}

func (l *Logger) MemberRemovedFromGroup(ctx context.Context, r *http.Request, actorID, targetUserID, groupID primitive.ObjectID) {
	e := groupEvent(r, audit.EventMemberRemovedFromGroup, actorID, groupID, nil)
	e.UserID = &targetUserID
	l.Log(ctx, e)
}

func (l *Logger) MemberRoleChanged(ctx context.Context, r *http.Request, actorID, targetUserID, groupID primitive.ObjectID, oldRole, newRole string) {
	e := groupEvent(r, audit.EventMemberRoleChanged, actorID, groupID,
		map[string]string{"old_role": oldRole, "new_role": newRole})
	e.UserID = &targetUserID
	l.Log(ctx, e)
}

func (l *Logger) EventCreated(ctx context.Context, r *http.Request, actorID, eventID, groupID primitive.ObjectID, title string) {
	l.Log(ctx, groupEvent(r, audit.EventEventCreated, actorID, groupID,
		map[string]string{"event_id": eventID.Hex(), "title": title}))
}

func (l *Logger) EventUpdated(ctx context.Context, r *http.Request, actorID, eventID, groupID primitive.ObjectID, fieldsChanged string) {
	l.Log(ctx, groupEvent(r, audit.EventEventUpdated, actorID, groupID,
		map[string]string{"event_id": eventID.Hex(), "fields_changed": fieldsChanged}))
}

func (l *Logger) EventDeleted(ctx context.Context, r *http.Request, actorID, eventID, groupID primitive.ObjectID, title string) {
	l.Log(ctx, groupEvent(r, audit.EventEventDeleted, actorID, groupID,
		map[string]string{"event_id": eventID.Hex(), "title": title}))
}
