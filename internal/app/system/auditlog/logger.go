// internal/app/system/auditlog/logger.go
package auditlog

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/melange/internal/app/store/audit"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for admin actions, admission decisions and
	// connection role changes. Same values as Auth.
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
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

// getClientIP extracts the client IP from the request. chi's RealIP
// middleware has already rewritten RemoteAddr when a proxy header is set.
func getClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	return r.RemoteAddr
}

func userAgent(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.UserAgent()
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.ProgramID != nil {
		fields = append(fields, zap.String("program_id", event.ProgramID.Hex()))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.OrganizationID != nil {
		fields = append(fields, zap.String("organization_id", event.OrganizationID.Hex()))
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

// Log records an audit event based on configuration.
// A nil Logger is a no-op so tests can pass nil.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin, audit.CategoryConnection:
		setting = l.config.Admin
	default:
		setting = "all"
	}
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, authMethod, loginID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details: map[string]string{
			"auth_method": authMethod,
			"login_id":    loginID,
		},
	})
}

// LoginFailedUserNotFound logs a failed login due to user not found.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedLoginID string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserNotFound,
		IP:            getClientIP(r),
		UserAgent:     userAgent(r),
		FailureReason: "user not found",
		Details:       map[string]string{"attempted_login_id": attemptedLoginID},
	})
}

// LoginFailedWrongPassword logs a failed login due to wrong password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, loginID string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		UserID:        &userID,
		IP:            getClientIP(r),
		UserAgent:     userAgent(r),
		FailureReason: "wrong password",
		Details:       map[string]string{"login_id": loginID},
	})
}

// LoginFailedUserDisabled logs a failed login due to disabled account.
func (l *Logger) LoginFailedUserDisabled(ctx context.Context, r *http.Request, userID primitive.ObjectID, loginID string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserDisabled,
		UserID:        &userID,
		IP:            getClientIP(r),
		UserAgent:     userAgent(r),
		FailureReason: "user disabled",
		Details:       map[string]string{"login_id": loginID},
	})
}

// Logout logs a user logout. userIDStr comes from the SessionUser.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr string) {
	var userID *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		userID = &oid
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    userID,
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
	})
}

// --- Admin Events ---

// AdminCreated logs creation of a site administrator (melangectl).
func (l *Logger) AdminCreated(ctx context.Context, userID primitive.ObjectID, loginID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventAdminCreated,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"login_id": loginID},
	})
}

// ProgramCreated logs when an admin creates a program.
func (l *Logger) ProgramCreated(ctx context.Context, r *http.Request, actorID, programID primitive.ObjectID, slug string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventProgramCreated,
		ProgramID: &programID,
		ActorID:   &actorID,
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"slug": slug},
	})
}

// ProgramUpdated logs when an admin edits a program.
func (l *Logger) ProgramUpdated(ctx context.Context, r *http.Request, actorID, programID primitive.ObjectID, fieldsChanged string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventProgramUpdated,
		ProgramID: &programID,
		ActorID:   &actorID,
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"fields_changed": fieldsChanged},
	})
}

// OrgApplied logs an organization application.
func (l *Logger) OrgApplied(ctx context.Context, r *http.Request, actorID primitive.ObjectID, org models.Organization) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAdmin,
		EventType:      audit.EventOrgApplied,
		ProgramID:      &org.ProgramID,
		OrganizationID: &org.ID,
		ActorID:        &actorID,
		IP:             getClientIP(r),
		UserAgent:      userAgent(r),
		Success:        true,
		Details:        map[string]string{"org_id": org.OrgID, "org_name": org.Name},
	})
}

// OrgDecision logs a pre-accept or pre-reject by a program admin.
func (l *Logger) OrgDecision(ctx context.Context, r *http.Request, actorID primitive.ObjectID, org models.Organization, status string) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAdmin,
		EventType:      audit.EventOrgDecision,
		ProgramID:      &org.ProgramID,
		OrganizationID: &org.ID,
		ActorID:        &actorID,
		IP:             getClientIP(r),
		UserAgent:      userAgent(r),
		Success:        true,
		Details:        map[string]string{"from": org.Status, "to": status},
	})
}

// OrgDecisionsPublished logs one page of the apply-decisions job.
func (l *Logger) OrgDecisionsPublished(ctx context.Context, programID primitive.ObjectID, accepted, rejected int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventOrgDecisionsPublished,
		ProgramID: &programID,
		Success:   true,
		Details: map[string]string{
			"accepted": strconv.Itoa(accepted),
			"rejected": strconv.Itoa(rejected),
		},
	})
}

// BatchJobTriggered logs an admin starting a batch job.
func (l *Logger) BatchJobTriggered(ctx context.Context, r *http.Request, actorID, programID primitive.ObjectID, job string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventBatchJobTriggered,
		ProgramID: &programID,
		ActorID:   &actorID,
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"job": job},
	})
}

// ProposalsAccepted logs the acceptance step for one organization.
func (l *Logger) ProposalsAccepted(ctx context.Context, programID, orgID primitive.ObjectID, accepted int) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAdmin,
		EventType:      audit.EventProposalsAccepted,
		ProgramID:      &programID,
		OrganizationID: &orgID,
		Success:        true,
		Details:        map[string]string{"accepted": strconv.Itoa(accepted)},
	})
}

// --- Connection Events ---

// ConnectionStarted logs a new connection. side is "user" or "org".
func (l *Logger) ConnectionStarted(ctx context.Context, actorID primitive.ObjectID, conn models.Connection, side string) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryConnection,
		EventType:      audit.EventConnectionStarted,
		ProgramID:      &conn.ProgramID,
		OrganizationID: &conn.OrganizationID,
		UserID:         &conn.UserID,
		ActorID:        &actorID,
		Success:        true,
		Details: map[string]string{
			"connection_id": conn.ID.Hex(),
			"side":          side,
			"user_role":     conn.UserRole,
			"org_role":      conn.OrgRole,
		},
	})
}

// ConnectionRoleChanged logs a role transition on either side.
func (l *Logger) ConnectionRoleChanged(ctx context.Context, actorID primitive.ObjectID, conn models.Connection, side, from, to string) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryConnection,
		EventType:      audit.EventConnectionRoleChanged,
		ProgramID:      &conn.ProgramID,
		OrganizationID: &conn.OrganizationID,
		UserID:         &conn.UserID,
		ActorID:        &actorID,
		Success:        true,
		Details: map[string]string{
			"connection_id": conn.ID.Hex(),
			"side":          side,
			"from":          from,
			"to":            to,
		},
	})
}

// AnonymousInvited logs an email invitation from an organization.
func (l *Logger) AnonymousInvited(ctx context.Context, actorID primitive.ObjectID, anon models.AnonymousConnection) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryConnection,
		EventType:      audit.EventAnonymousInvited,
		ProgramID:      &anon.ProgramID,
		OrganizationID: &anon.OrganizationID,
		ActorID:        &actorID,
		Success:        true,
		Details:        map[string]string{"email": anon.Email, "org_role": anon.OrgRole},
	})
}

// AnonymousClaimed logs an invitation turned into a connection.
func (l *Logger) AnonymousClaimed(ctx context.Context, conn models.Connection) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryConnection,
		EventType:      audit.EventAnonymousClaimed,
		ProgramID:      &conn.ProgramID,
		OrganizationID: &conn.OrganizationID,
		UserID:         &conn.UserID,
		ActorID:        &conn.UserID,
		Success:        true,
		Details:        map[string]string{"connection_id": conn.ID.Hex(), "org_role": conn.OrgRole},
	})
}
