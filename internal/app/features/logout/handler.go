// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/melange/internal/app/system/auditlog"
	"github.com/dalemusser/melange/internal/app/system/auth"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
	}
}

// HandleLogout clears the session cookie.
// POST /logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		h.AuditLog.Logout(r.Context(), r, u.ID)
	}

	// A failed save still leaves the client without a usable session.
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Warn("logout: save session", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}
