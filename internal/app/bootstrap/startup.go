// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/eventhub/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/eventhub/internal/app/store/users"
	"github.com/dalemusser/eventhub/internal/app/system/ratelimit"
	"github.com/dalemusser/eventhub/internal/app/system/tasks"
	"github.com/dalemusser/eventhub/internal/app/system/workers"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It makes
// sure the configured admin exists and starts the background workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := ensureAdmin(ctx, deps, appCfg.AdminEmail, logger); err != nil {
		return err
	}

	ratelimit.TrustProxyHeaders(appCfg.TrustProxyHeaders)
	if appCfg.TrustProxyHeaders {
		logger.Info("client IPs taken from proxy headers")
	}

	bg := deps.Background
	bg.Limiter = ratelimit.NewAuthLimiter()

	users := userstore.New(deps.MongoDatabase)
	bg.Cleanup = workers.NewPendingAccountCleanup(users, logger, appCfg.PendingCleanupInterval, appCfg.PendingAccountTTL)
	if appCfg.PendingCleanupInterval > 0 {
		bg.Cleanup.Start()
	} else {
		logger.Info("pending account cleanup worker disabled")
	}

	bg.Scheduler = tasks.NewScheduler(logger,
		tasks.OAuthStateCleanupJob(oauthstate.New(deps.MongoDatabase), logger),
	)
	bg.Scheduler.Start()
	return nil
}

// ensureAdmin makes email an active, approved ADMIN. A missing account is
// created without a password; its owner signs in with Google, which links
// the account by email.
func ensureAdmin(ctx context.Context, deps DBDeps, email string, logger *zap.Logger) error {
	if email == "" {
		return nil
	}
	users := userstore.New(deps.MongoDatabase)

	u, err := users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		u, err = users.Create(ctx, models.User{
			Email:      email,
			FullName:   "Administrator",
			AuthMethod: models.AuthMethodGoogle,
			Role:       models.RoleAdmin,
		})
		if err != nil {
			return fmt.Errorf("create admin %s: %w", email, err)
		}
		logger.Info("created admin account", zap.String("email", u.Email))
	case err != nil:
		return fmt.Errorf("load admin %s: %w", email, err)
	case u.Role != models.RoleAdmin:
		if err := users.SetRole(ctx, u.ID, models.RoleAdmin); err != nil {
			return fmt.Errorf("promote admin %s: %w", email, err)
		}
		logger.Info("promoted account to admin", zap.String("email", u.Email))
	}

	if u.Active && !u.Pending() {
		return nil
	}
	if err := users.Approve(ctx, u.ID); err != nil {
		return fmt.Errorf("approve admin %s: %w", email, err)
	}
	return nil
}
