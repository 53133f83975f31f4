// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, log level, CORS); everything that
// belongs to event hub itself lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: eventhub-session)
	SessionDomain string // Cookie domain (blank means current host)

	// Public base URL, used for OAuth callbacks, calendar feed URLs and
	// event links inside exported calendars.
	BaseURL string

	// Google OAuth. Login with Google is disabled when either is blank.
	GoogleClientID     string
	GoogleClientSecret string

	// Calendar feed tokens. Feeds are disabled when the secret is blank.
	FeedTokenSecret string
	FeedTokenTTL    time.Duration // 0 means tokens do not expire

	// Registrations nobody approves within PendingAccountTTL are removed
	// every PendingCleanupInterval. An interval of 0 disables the worker.
	PendingAccountTTL      time.Duration
	PendingCleanupInterval time.Duration

	BcryptCost int

	// AdminEmail is promoted to (or created as) an active ADMIN on startup.
	AdminEmail string

	// TrustProxyHeaders makes rate limiting and audit records use the
	// client address a reverse proxy reports. Leave off when clients
	// connect directly, or they can pick their own IP.
	TrustProxyHeaders bool

	// Audit destinations per category: all, db, log or off.
	AuditLogAuth  string
	AuditLogAdmin string
}
