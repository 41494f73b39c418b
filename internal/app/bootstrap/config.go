// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minTaskSecret is the shortest task secret accepted in production.
const minTaskSecret = 32

// appConfigKeys defines the configuration keys for Melange.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: MELANGE_MONGO_URI, MELANGE_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "melange", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "melange-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session lifetime (e.g., 24h, 720h)"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank disables outbound mail)"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@melange.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "Melange", Desc: "From display name"},

	// Base URL for links in mail and task delivery
	{Name: "base_url", Default: "http://localhost:8080", Desc: "Public base URL of this service"},

	// Task queue
	{Name: "task_secret", Default: "dev-only-task-secret-0123456789ABCDEF", Desc: "Secret used to sign task delivery tokens"},
	{Name: "task_poll_interval", Default: "1s", Desc: "Task dispatcher poll interval"},
	{Name: "task_max_attempts", Default: 10, Desc: "Deliveries before a task is marked failed"},
	{Name: "task_lease", Default: "2m", Desc: "How long a leased task is hidden from other dispatchers"},
	{Name: "duplicates_repeat_interval", Default: "1h", Desc: "Interval between repeated duplicate proposal calculations"},
	{Name: "anonymous_connection_ttl", Default: "168h", Desc: "Lifetime of anonymous connection invitations"},

	{Name: "cors_allowed_origins", Default: "", Desc: "Comma-separated origins allowed for cross-site requests"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},
	{Name: "site_admin_email", Default: "", Desc: "Email of the site administrator (promoted on startup and first sign-in)"},

	// Handler timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document reads"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for list queries and simple writes"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for multi-collection writes"},
	{Name: "timeout_batch", Default: "2m", Desc: "Timeout for one page of a background job"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, MELANGE_* for app) and flags,
// merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "MELANGE", appConfigKeys)
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
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),

		// Email/SMTP
		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		BaseURL: strings.TrimRight(appValues.String("base_url"), "/"),

		// Task queue
		TaskSecret:             appValues.String("task_secret"),
		TaskPollInterval:       appValues.Duration("task_poll_interval", time.Second),
		TaskMaxAttempts:        appValues.Int("task_max_attempts"),
		TaskLease:              appValues.Duration("task_lease", 2*time.Minute),
		DuplicatesRepeat:       appValues.Duration("duplicates_repeat_interval", time.Hour),
		AnonymousConnectionTTL: appValues.Duration("anonymous_connection_ttl", 7*24*time.Hour),

		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),

		// Audit logging
		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		// Google OAuth
		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),
		SiteAdminEmail:     appValues.String("site_admin_email"),

		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),
		TimeoutBatch:  appValues.Duration("timeout_batch", 0),
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
		return fmt.Errorf("base_url %q must be an absolute URL", appCfg.BaseURL)
	}

	if appCfg.TaskSecret == "" {
		return fmt.Errorf("task_secret is required")
	}
	if coreCfg != nil && coreCfg.Env == "prod" && len(appCfg.TaskSecret) < minTaskSecret {
		return fmt.Errorf("task_secret must be at least %d characters in production", minTaskSecret)
	}

	return nil
}

// splitList parses a comma-separated config value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
