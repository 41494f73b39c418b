// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	profilestore "github.com/dalemusser/melange/internal/app/store/profiles"
	userstore "github.com/dalemusser/melange/internal/app/store/users"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.uber.org/zap"
)

// Profile kinds a user can register as.
const (
	KindOrgMember = "org_member"
	KindStudent   = "student"
)

type createInput struct {
	Kind       string `json:"kind" validate:"required,oneof=org_member student" label:"Kind"`
	PublicName string `json:"public_name" validate:"max=200" label:"Public name"`
	LinkID     string `json:"link_id" validate:"max=64" label:"Link ID"`
	Email      string `json:"email" validate:"email" label:"Email"`
}

// ServeMine handles GET /programs/{program}/profile.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "view profile", err)
		return
	}
	if sc.Actor.Profile == nil {
		h.ErrLog.HandleError(w, r, "view profile", uierrors.NotFound("You have no profile in this program."))
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, sc.Actor.Profile)
}

// HandleCreate handles POST /programs/{program}/profile. A user holds at
// most one profile per program; the kind cannot be changed later.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind profile", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "create profile", err)
		return
	}
	if sc.Actor.Profile != nil {
		h.ErrLog.HandleError(w, r, "create profile", uierrors.Conflict("You already have a profile in this program."))
		return
	}

	u, err := userstore.New(h.DB).GetByID(ctx, sc.Actor.UserID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user for profile", err, "A server error occurred.")
		return
	}

	p := models.Profile{
		UserID:     u.ID,
		ProgramID:  sc.Program.ID,
		PublicName: in.PublicName,
		LinkID:     in.LinkID,
		Email:      in.Email,
		IsStudent:  in.Kind == KindStudent,
	}
	if p.PublicName == "" {
		p.PublicName = u.FullName
	}
	if p.LinkID == "" {
		p.LinkID = u.LoginID
	}
	if p.Email == "" {
		p.Email = u.Email
	}

	created, err := profilestore.New(h.DB).Create(ctx, p)
	if errors.Is(err, profilestore.ErrDuplicateProfile) {
		h.ErrLog.HandleError(w, r, "create profile", uierrors.Conflict("You already have a profile in this program."))
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create profile", err, "Failed to create profile.")
		return
	}

	h.Log.Info("profile created",
		zap.String("program", sc.Program.Slug),
		zap.String("user_id", u.ID.Hex()),
		zap.Bool("student", created.IsStudent))
	uierrors.WriteJSON(w, http.StatusCreated, created)
}

// ServeAll handles GET /profiles: every profile of the signed-in user.
func (h *Handler) ServeAll(w http.ResponseWriter, r *http.Request) {
	userID, _, err := request.User(r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "list profiles", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := profilestore.New(h.DB).ListByUser(ctx, userID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list profiles", err, "Unable to load profiles.")
		return
	}
	if list == nil {
		list = []models.Profile{}
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]any{"items": list})
}
