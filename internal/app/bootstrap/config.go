// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/eventhub/internal/app/system/auditlog"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const devSessionKey = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for event hub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: EVENTHUB_MONGO_URI, EVENTHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "eventhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: devSessionKey, Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "eventhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public base URL for OAuth callbacks and calendar links"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	// Calendar feeds
	{Name: "feed_token_secret", Default: "", Desc: "HMAC secret for calendar feed tokens (blank disables feeds)"},
	{Name: "feed_token_ttl", Default: "0s", Desc: "Calendar feed token lifetime (0 means no expiry)"},

	// Registration housekeeping
	{Name: "pending_account_ttl", Default: "720h", Desc: "Remove registrations not approved within this long"},
	{Name: "pending_cleanup_interval", Default: "1h", Desc: "How often to remove stale registrations (0 disables)"},

	{Name: "bcrypt_cost", Default: 12, Desc: "bcrypt cost for new password hashes"},

	// Admin bootstrap
	{Name: "admin_email", Default: "", Desc: "Email of an account to promote/create as ADMIN on startup"},

	// Set only behind a reverse proxy that overwrites X-Forwarded-For.
	{Name: "trust_proxy_headers", Default: false, Desc: "Take client IPs from X-Forwarded-For / X-Real-IP"},

	// Audit logging: all, db, log or off
	{Name: "audit_log_auth", Default: "all", Desc: "Audit destination for sign-in, sign-out and registration events"},
	{Name: "audit_log_admin", Default: "all", Desc: "Audit destination for account, group, membership and event changes"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// EVENTHUB_* environment variables and flags, with precedence
// flags > env > files > defaults. Request timeouts come from TIMEOUT_*.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "EVENTHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),

		BaseURL: strings.TrimRight(appValues.String("base_url"), "/"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		FeedTokenSecret: appValues.String("feed_token_secret"),
		FeedTokenTTL:    appValues.Duration("feed_token_ttl", 0),

		PendingAccountTTL:      appValues.Duration("pending_account_ttl", 30*24*time.Hour),
		PendingCleanupInterval: appValues.Duration("pending_cleanup_interval", time.Hour),

		BcryptCost: appValues.Int("bcrypt_cost"),
		AdminEmail: appValues.String("admin_email"),

		TrustProxyHeaders: appValues.Bool("trust_proxy_headers"),

		AuditLogAuth:  strings.ToLower(appValues.String("audit_log_auth")),
		AuditLogAdmin: strings.ToLower(appValues.String("audit_log_admin")),
	}

	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("request timeouts overridden from environment", zap.Int("count", n))
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	u, err := url.Parse(appCfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute URL, got %q", appCfg.BaseURL)
	}

	if coreCfg.Env == "prod" && appCfg.SessionKey == devSessionKey {
		return errors.New("session_key must be set in production")
	}
	if appCfg.PendingAccountTTL <= 0 {
		return errors.New("pending_account_ttl must be positive")
	}
	if appCfg.PendingCleanupInterval < 0 {
		return errors.New("pending_cleanup_interval must not be negative")
	}
	if !auditlog.IsValidSetting(appCfg.AuditLogAuth) {
		return fmt.Errorf("audit_log_auth must be all, db, log or off, got %q", appCfg.AuditLogAuth)
	}
	if !auditlog.IsValidSetting(appCfg.AuditLogAdmin) {
		return fmt.Errorf("audit_log_admin must be all, db, log or off, got %q", appCfg.AuditLogAdmin)
	}
	if (appCfg.GoogleClientID == "") != (appCfg.GoogleClientSecret == "") {
		logger.Warn("only one of google_client_id and google_client_secret is set; Google login stays disabled")
	}

	return nil
}
