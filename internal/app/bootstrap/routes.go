// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	adminfeature "github.com/dalemusser/eventhub/internal/app/features/admin"
	authgooglefeature "github.com/dalemusser/eventhub/internal/app/features/authgoogle"
	errorsfeature "github.com/dalemusser/eventhub/internal/app/features/errors"
	eventsfeature "github.com/dalemusser/eventhub/internal/app/features/events"
	groupsfeature "github.com/dalemusser/eventhub/internal/app/features/groups"
	healthfeature "github.com/dalemusser/eventhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/eventhub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/eventhub/internal/app/features/logout"
	registerfeature "github.com/dalemusser/eventhub/internal/app/features/register"
	userinfofeature "github.com/dalemusser/eventhub/internal/app/features/userinfo"
	"github.com/dalemusser/eventhub/internal/app/store/audit"
	membershipstore "github.com/dalemusser/eventhub/internal/app/store/memberships"
	userstore "github.com/dalemusser/eventhub/internal/app/store/users"
	"github.com/dalemusser/eventhub/internal/app/system/auditlog"
	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"github.com/dalemusser/eventhub/internal/app/system/authz"
	"github.com/dalemusser/eventhub/internal/app/system/feedtoken"
	"github.com/dalemusser/eventhub/internal/app/system/gates"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. Every feature gets the same gatekeeper,
// so each handler re-reads its caller from the store before acting.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase
	bg := deps.Background

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	var feeds *feedtoken.Manager
	if appCfg.FeedTokenSecret != "" {
		feeds, err = feedtoken.NewManager(appCfg.FeedTokenSecret, appCfg.FeedTokenTTL)
		if err != nil {
			logger.Error("feed token manager init failed", zap.Error(err))
			return nil, err
		}
	} else {
		logger.Info("calendar feeds disabled: feed_token_secret is not set")
	}

	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	errLog := errorsfeature.NewErrorLogger(logger)
	gk := gates.New(authz.NewGate(userstore.NewFetcher(db)), errLog)
	admins := authz.NewGroupAdmins(userstore.NewFetcher(db), membershipstore.New(db), logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	// Global auth middleware: loads the cookie's SessionUser into context.
	// Handlers still go through the gate for authorization.
	r.Use(sessionMgr.LoadSessionUser)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		errorsfeature.NotFound(w, "Page")
	})

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication
	// Register and login run before a session exists; they are covered by
	// the rate limiter and the Lax session cookie instead of a CSRF token.
	registerHandler := registerfeature.NewHandler(db, bg.Limiter, appCfg.BcryptCost, auditLog, errLog, logger)
	r.Mount("/register", registerfeature.Routes(registerHandler))

	loginHandler := loginfeature.NewHandler(db, sessionMgr, bg.Limiter, auditLog, errLog, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	googleHandler := authgooglefeature.NewHandler(db, sessionMgr, auditLog, errLog,
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
	r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))

	eventsHandler := eventsfeature.NewHandler(db, gk, admins, feeds, appCfg.BaseURL, auditLog, errLog, logger)

	// Calendar feeds are authorized by token, not cookie.
	r.Mount("/calendar", eventsfeature.FeedRoutes(eventsHandler))

	// Everything below acts on the session cookie. Unsafe methods need the
	// token from the X-CSRF-Token response header (or /api/me).
	csrfFailed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info("csrf check failed",
			zap.String("path", r.URL.Path),
			zap.Error(auth.CSRFFailure(r)))
		errorsfeature.Write(w, http.StatusForbidden, "csrf_failed", "Missing or invalid CSRF token. Reload and try again.")
	})
	r.Group(func(pr chi.Router) {
		pr.Use(sessionMgr.CSRF(csrfFailed))

		logoutHandler := logoutfeature.NewHandler(sessionMgr, auditLog, logger)
		pr.Mount("/logout", logoutfeature.Routes(logoutHandler))

		// Account endpoints
		userinfoHandler := userinfofeature.NewHandler(gk, feeds, appCfg.BaseURL, errLog, logger)
		userinfofeature.MountRoutes(pr, userinfoHandler)

		// Groups and events. Event creation hangs off the group URL.
		groupsHandler := groupsfeature.NewHandler(db, gk, admins, auditLog, errLog, logger)
		pr.Mount("/groups", groupsfeature.Routes(groupsHandler, sessionMgr, eventsHandler.HandleCreateEvent))
		pr.Mount("/events", eventsfeature.Routes(eventsHandler, sessionMgr))

		// Platform administration
		adminHandler := adminfeature.NewHandler(db, gk, bg.Cleanup, auditLog, errLog, logger)
		pr.Mount("/admin", adminfeature.Routes(adminHandler, sessionMgr))
	})

	return r, nil
}
