// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// ports, TLS, logging and request limits; everything below is Melange's.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: melange-session)
	SessionDomain string // Cookie domain (blank means current host)
	SessionMaxAge time.Duration

	// Email/SMTP configuration. A blank host disables outbound mail.
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// Base URL for links in mail and for task delivery.
	BaseURL string // e.g., "https://melange.example.org" or "http://localhost:8080"

	// Task queue
	TaskSecret       string        // HMAC secret for task bearer tokens
	TaskPollInterval time.Duration // How often the dispatcher looks for due tasks
	TaskMaxAttempts  int
	TaskLease        time.Duration

	DuplicatesRepeat       time.Duration // Re-run interval for duplicate detection
	AnonymousConnectionTTL time.Duration // Lifetime of anonymous connection invitations

	CORSAllowedOrigins []string

	// Audit logging
	AuditLogAuth  string
	AuditLogAdmin string

	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string
	SiteAdminEmail     string // Promoted to site admin on startup and on first Google sign-in

	// Handler timeouts (zero keeps the defaults in system/timeouts)
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
	TimeoutBatch  time.Duration
}

// MailEnabled reports whether an SMTP host is configured.
func (c AppConfig) MailEnabled() bool {
	return c.MailSMTPHost != ""
}
