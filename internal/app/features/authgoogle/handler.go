// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/melange/internal/app/store/users"
	"github.com/dalemusser/melange/internal/app/system/auditlog"
	"github.com/dalemusser/melange/internal/app/system/auth"
	"github.com/dalemusser/melange/internal/app/system/normalize"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type Handler struct {
	DB         *mongo.Database
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	StateStore *oauthstate.Store

	ClientID       string
	ClientSecret   string
	RedirectURL    string // e.g., "https://melange.example.org/auth/google/callback"
	SiteAdminEmail string

	// Overridable for tests.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *uierrors.ErrorLogger,
	audit *auditlog.Logger,
	stateStore *oauthstate.Store,
	clientID, clientSecret, baseURL, siteAdminEmail string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		DB:             db,
		Log:            logger,
		SessionMgr:     sessionMgr,
		ErrLog:         errLog,
		AuditLog:       audit,
		StateStore:     stateStore,
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		RedirectURL:    strings.TrimRight(baseURL, "/") + "/auth/google/callback",
		SiteAdminEmail: normalize.Email(siteAdminEmail),
		Endpoint:       google.Endpoint,
		UserInfoURL:    defaultUserInfoURL,
	}
}

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: h.Endpoint,
	}
}

func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
| Stores a one-time state and redirects to Google's consent screen.            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		uierrors.WriteError(w, r, http.StatusServiceUnavailable, "Google sign-in is not configured.")
		return
	}

	state, err := generateState()
	if err != nil {
		h.ErrLog.LogServerError(w, r, "generate OAuth state", err, "A server error occurred.")
		return
	}

	returnURL := urlutil.SafeReturn(query.Get(r, "return"), "", "/")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	expiresAt := time.Now().UTC().Add(10 * time.Minute)
	if err := h.StateStore.Save(ctx, state, returnURL, expiresAt); err != nil {
		h.ErrLog.LogServerError(w, r, "save OAuth state", err, "A server error occurred.")
		return
	}

	dest := h.oauth2Config().AuthCodeURL(state, oauth2.AccessTypeOnline)
	h.Log.Debug("initiating Google OAuth flow", zap.String("return_url", returnURL))
	http.Redirect(w, r, dest, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
| Exchanges the code, fetches the Google profile, finds or creates the user,   |
| and signs them in.                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := query.Get(r, "error"); errParam != "" {
		h.Log.Info("Google OAuth denied", zap.String("error", errParam))
		uierrors.WriteError(w, r, http.StatusUnauthorized, "Google sign-in was cancelled.")
		return
	}

	state := query.Get(r, "state")
	code := query.Get(r, "code")
	if state == "" || code == "" {
		uierrors.WriteError(w, r, http.StatusBadRequest, "Missing state or code.")
		return
	}

	stateCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
	returnURL, valid, err := h.StateStore.Validate(stateCtx, state)
	cancel()
	if err != nil {
		h.ErrLog.LogServerError(w, r, "validate OAuth state", err, "A server error occurred.")
		return
	}
	if !valid {
		uierrors.WriteError(w, r, http.StatusBadRequest, "Sign-in link expired. Please try again.")
		return
	}

	exCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	token, err := h.oauth2Config().Exchange(exCtx, code)
	if err != nil {
		h.Log.Warn("OAuth code exchange failed", zap.Error(err))
		uierrors.WriteError(w, r, http.StatusUnauthorized, "Google sign-in failed.")
		return
	}

	info, err := h.fetchUserInfo(exCtx, token)
	if err != nil {
		h.Log.Warn("fetch Google user info failed", zap.Error(err))
		uierrors.WriteError(w, r, http.StatusUnauthorized, "Google sign-in failed.")
		return
	}

	u, err := h.findOrCreateUser(exCtx, r, info)
	switch {
	case errors.Is(err, errUserDisabled):
		uierrors.WriteError(w, r, http.StatusForbidden, "Your account is currently disabled. Please contact an administrator.")
		return
	case errors.Is(err, errEmailUnverified):
		uierrors.WriteError(w, r, http.StatusForbidden, "Your Google email address is not verified.")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "find or create Google user", err, "A server error occurred.")
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex()); err != nil {
		h.ErrLog.LogServerError(w, r, "save session failed", err, "Unable to create session. Please try again.")
		return
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, models.AuthMethodGoogle, u.LoginID)

	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/"), http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| User lookup                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

var (
	errUserDisabled    = errors.New("user disabled")
	errEmailUnverified = errors.New("google email not verified")
)

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get(h.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	if info.ID == "" {
		return nil, errors.New("user info has no subject")
	}
	return &info, nil
}

// findOrCreateUser resolves the Google subject to a user. Lookup order is
// subject, then email; unknown verified addresses get a new account, and the
// configured site admin email is created as an admin.
func (h *Handler) findOrCreateUser(ctx context.Context, r *http.Request, info *googleUserInfo) (*models.User, error) {
	users := userstore.New(h.DB)

	u, err := users.GetByGoogleSubject(ctx, info.ID)
	if err != nil && !errors.Is(err, userstore.ErrNotFound) {
		return nil, err
	}

	if u == nil {
		if !info.EmailVerified {
			return nil, errEmailUnverified
		}
		u, err = users.GetByEmail(ctx, info.Email)
		switch {
		case err == nil:
			if err := users.LinkGoogle(ctx, u.ID, info.ID); err != nil {
				return nil, err
			}
			u.AuthMethod = models.AuthMethodGoogle
		case errors.Is(err, userstore.ErrNotFound):
			role := models.UserRoleUser
			if h.SiteAdminEmail != "" && normalize.Email(info.Email) == h.SiteAdminEmail {
				role = models.UserRoleAdmin
			}
			subject := info.ID
			created, err := users.Create(ctx, models.User{
				Email:        info.Email,
				FullName:     info.Name,
				AuthMethod:   models.AuthMethodGoogle,
				AuthReturnID: &subject,
				Role:         role,
			})
			if err != nil {
				return nil, err
			}
			h.Log.Info("created user from Google sign-in",
				zap.String("user_id", created.ID.Hex()),
				zap.String("role", role))
			u = &created
		default:
			return nil, err
		}
	}

	if normalize.Status(u.Status) == models.UserStatusDisabled {
		h.AuditLog.LoginFailedUserDisabled(ctx, r, u.ID, u.LoginID)
		return nil, errUserDisabled
	}
	return u, nil
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
