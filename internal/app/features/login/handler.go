// internal/app/features/login/handler.go
package login

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	userstore "github.com/dalemusser/melange/internal/app/store/users"
	"github.com/dalemusser/melange/internal/app/system/auditlog"
	"github.com/dalemusser/melange/internal/app/system/auth"
	"github.com/dalemusser/melange/internal/app/system/normalize"
	"github.com/dalemusser/melange/internal/app/system/ratelimit"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB           *mongo.Database
	Log          *zap.Logger
	SessionMgr   *auth.SessionManager
	ErrLog       *uierrors.ErrorLogger
	AuditLog     *auditlog.Logger
	LoginLimiter *ratelimit.LoginLimiter
}

func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *uierrors.ErrorLogger,
	auditLog *auditlog.Logger,
	limiter *ratelimit.LoginLimiter,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		DB:           db,
		Log:          logger,
		SessionMgr:   sessionMgr,
		ErrLog:       errLog,
		AuditLog:     auditLog,
		LoginLimiter: limiter,
	}
}

type loginInput struct {
	LoginID  string `json:"login_id" validate:"required,max=200" label:"Login ID"`
	Password string `json:"password" validate:"required" label:"Password"`
}

// UserView is the signed-in user returned by login and /me.
type UserView struct {
	ID       string `json:"id"`
	LoginID  string `json:"login_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func viewOf(u *models.User) UserView {
	return UserView{
		ID:       u.ID.Hex(),
		LoginID:  u.LoginID,
		FullName: u.FullName,
		Email:    u.Email,
		Role:     u.Role,
	}
}

// HandleLogin signs a user in with login ID and password.
// POST /login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind login", err)
		return
	}
	loginID := strings.TrimSpace(in.LoginID)

	if h.LoginLimiter != nil {
		if ok, msg := h.LoginLimiter.Check(r, loginID); !ok {
			uierrors.WriteError(w, r, http.StatusTooManyRequests, msg)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	users := userstore.New(h.DB)
	u, err := users.GetByLoginID(ctx, loginID)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		h.AuditLog.LoginFailedUserNotFound(ctx, r, loginID)
		uierrors.WriteError(w, r, http.StatusUnauthorized, "Invalid login ID or password.")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "DB find user", err, "A server error occurred.")
		return
	}

	/*── check status: disabled users cannot log in ────────────────────────*/

	if normalize.Status(u.Status) == models.UserStatusDisabled {
		h.AuditLog.LoginFailedUserDisabled(ctx, r, u.ID, loginID)
		uierrors.WriteError(w, r, http.StatusForbidden, "Your account is currently disabled. Please contact an administrator.")
		return
	}

	if normalize.AuthMethod(u.AuthMethod) != models.AuthMethodPassword {
		uierrors.WriteError(w, r, http.StatusBadRequest, "This account signs in with Google.")
		return
	}

	if !userstore.CheckPassword(u, in.Password) {
		h.AuditLog.LoginFailedWrongPassword(ctx, r, u.ID, loginID)
		uierrors.WriteError(w, r, http.StatusUnauthorized, "Invalid login ID or password.")
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex()); err != nil {
		h.ErrLog.LogServerError(w, r, "save session failed", err, "Unable to create session. Please try again.")
		return
	}
	if h.LoginLimiter != nil {
		h.LoginLimiter.ResetAccount(loginID)
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, models.AuthMethodPassword, loginID)
	h.Log.Info("user signed in", zap.String("user_id", u.ID.Hex()))

	uierrors.WriteJSON(w, http.StatusOK, viewOf(u))
}

type changePasswordInput struct {
	Current string `json:"current_password" validate:"required" label:"Current password"`
	New     string `json:"new_password" validate:"required,min=8,max=200" label:"New password"`
}

// HandleChangePassword changes the signed-in user's password.
// POST /login/password
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, _, err := request.User(r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "change password", err)
		return
	}
	var in changePasswordInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind change password", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	users := userstore.New(h.DB)
	u, err := users.GetByID(ctx, userID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user for password change", err, "A server error occurred.")
		return
	}
	if !userstore.CheckPassword(u, in.Current) {
		uierrors.WriteError(w, r, http.StatusBadRequest, "Current password is incorrect.")
		return
	}
	if err := users.SetPassword(ctx, u.ID, in.New); err != nil {
		h.ErrLog.LogServerError(w, r, "set password", err, "Failed to update password.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeMe returns the signed-in user.
// GET /me
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	userID, _, err := request.User(r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "me", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := userstore.New(h.DB).GetByID(ctx, userID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load current user", err, "A server error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, viewOf(u))
}
