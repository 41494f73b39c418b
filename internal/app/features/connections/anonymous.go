// internal/app/features/connections/anonymous.go
package connections

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	organizationstore "github.com/dalemusser/melange/internal/app/store/organizations"
	profilestore "github.com/dalemusser/melange/internal/app/store/profiles"
	programstore "github.com/dalemusser/melange/internal/app/store/programs"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type inviteInput struct {
	Email   string `json:"email" validate:"required,email,max=254" label:"Email"`
	OrgRole string `json:"org_role" validate:"required,oneof=mentor org_admin" label:"Organization role"`
}

type claimInput struct {
	Token string `json:"token" validate:"max=128" label:"Token"`
}

type invitationView struct {
	Program        string    `json:"program"`
	ProgramSlug    string    `json:"program_slug"`
	Organization   string    `json:"organization"`
	OrganizationID string    `json:"organization_id"`
	OrgRole        string    `json:"org_role"`
	Email          string    `json:"email"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// HandleInvite handles POST /programs/{program}/connections/org/{org}/anonymous.
// The token only travels in the invitation mail.
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	var in inviteInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind invitation", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "invite by email", err)
		return
	}
	org, err := sc.OrganizationParam(ctx, h.DB, r, "org")
	if err != nil {
		h.ErrLog.HandleError(w, r, "invite by email", err)
		return
	}
	if err := sc.RequireOrgAdmin(org); err != nil {
		h.ErrLog.HandleError(w, r, "invite by email", err)
		return
	}

	anon, err := h.Negotiation.StartAnonymous(ctx, sc.Actor.UserID, org, strings.TrimSpace(in.Email), in.OrgRole)
	if err != nil {
		h.ErrLog.HandleError(w, r, "invite by email", userError(err))
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, anon)
}

// ServeInvitation handles GET /connections/anonymous/{token}. It needs no
// session: the token is remembered in a signed cookie so the invitee can
// sign in and create a profile before claiming it.
func (h *Handler) ServeInvitation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	token := chi.URLParam(r, "token")
	anon, err := h.anon.GetValid(ctx, token, time.Now().UTC())
	if err != nil {
		h.ErrLog.HandleError(w, r, "open invitation", userError(err))
		return
	}
	org, err := organizationstore.New(h.DB).GetByID(ctx, anon.OrganizationID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load invitation organization", err, "Unable to load invitation.")
		return
	}
	prog, err := programstore.New(h.DB).GetByID(ctx, anon.ProgramID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load invitation program", err, "Unable to load invitation.")
		return
	}

	if encoded, err := h.invites.Encode(inviteCookie, token); err != nil {
		h.Log.Warn("encode invitation cookie", zap.Error(err))
	} else {
		http.SetCookie(w, &http.Cookie{
			Name:     inviteCookie,
			Value:    encoded,
			Path:     "/",
			Expires:  anon.ExpirationDate,
			HttpOnly: true,
			Secure:   h.secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
	}

	uierrors.WriteJSON(w, http.StatusOK, invitationView{
		Program:        prog.Name,
		ProgramSlug:    prog.Slug,
		Organization:   org.Name,
		OrganizationID: org.ID.Hex(),
		OrgRole:        anon.OrgRole,
		Email:          anon.Email,
		ExpiresAt:      anon.ExpirationDate,
	})
}

// HandleClaim handles POST /connections/anonymous/claim. The token comes
// from the body or, failing that, from the invitation cookie. The caller
// needs a profile in the invitation's program.
func (h *Handler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	var in claimInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind claim", err)
		return
	}
	userID, _, err := request.User(r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "claim invitation", err)
		return
	}

	token := in.Token
	if token == "" {
		token = h.cookieToken(r)
	}
	if token == "" {
		h.ErrLog.HandleError(w, r, "claim invitation", uierrors.BadRequest("No invitation to claim."))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	anon, err := h.anon.GetValid(ctx, token, time.Now().UTC())
	if err != nil {
		h.clearCookie(w)
		h.ErrLog.HandleError(w, r, "claim invitation", userError(err))
		return
	}
	profile, err := profilestore.New(h.DB).GetByUserProgram(ctx, userID, anon.ProgramID)
	if errors.Is(err, profilestore.ErrNotFound) {
		h.ErrLog.HandleError(w, r, "claim invitation", uierrors.Forbidden("Create a profile in this program before accepting the invitation."))
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load claiming profile", err, "Unable to claim invitation.")
		return
	}
	if profile.IsStudent || profile.Status != models.ProfileStatusActive {
		h.ErrLog.HandleError(w, r, "claim invitation", uierrors.Forbidden("An active mentor or organization member profile is required."))
		return
	}

	conn, err := h.Negotiation.ClaimAnonymous(ctx, token, profile)
	if err != nil {
		h.ErrLog.HandleError(w, r, "claim invitation", userError(err))
		return
	}
	h.clearCookie(w)
	uierrors.WriteJSON(w, http.StatusCreated, conn)
}

func (h *Handler) cookieToken(r *http.Request) string {
	c, err := r.Cookie(inviteCookie)
	if err != nil {
		return ""
	}
	var token string
	if err := h.invites.Decode(inviteCookie, c.Value, &token); err != nil {
		h.Log.Debug("ignore invitation cookie", zap.Error(err))
		return ""
	}
	return token
}

func (h *Handler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     inviteCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
