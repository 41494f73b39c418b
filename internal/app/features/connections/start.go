// internal/app/features/connections/start.go
package connections

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	"github.com/dalemusser/melange/internal/app/policy/connectionpolicy"
	profilestore "github.com/dalemusser/melange/internal/app/store/profiles"
	"github.com/dalemusser/melange/internal/app/system/normalize"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type startAsUserInput struct {
	OrganizationID string `json:"organization_id" validate:"required,objectid" label:"Organization"`
	Message        string `json:"message" validate:"max=5000" label:"Message"`
}

type startAsOrgInput struct {
	ProfileID string `json:"profile_id" validate:"objectid" label:"Profile"`
	LinkID    string `json:"link_id" validate:"max=64" label:"Link ID"`
	OrgRole   string `json:"org_role" validate:"required,orgrole" label:"Organization role"`
	Message   string `json:"message" validate:"max=5000" label:"Message"`
}

// HandleStartAsUser handles POST /programs/{program}/connections: the
// signed-in profile asks an organization for a role.
func (h *Handler) HandleStartAsUser(w http.ResponseWriter, r *http.Request) {
	var in startAsUserInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind connection request", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "start connection", err)
		return
	}
	if !connectionpolicy.CanStartAsUser(sc.Actor) {
		h.ErrLog.HandleError(w, r, "start connection", uierrors.Forbidden("An active mentor or organization member profile is required."))
		return
	}
	orgID, err := request.ParseID(in.OrganizationID, "Organization")
	if err != nil {
		h.ErrLog.HandleError(w, r, "start connection", err)
		return
	}
	org, err := sc.Organization(ctx, h.DB, orgID)
	if err != nil {
		h.ErrLog.HandleError(w, r, "start connection", err)
		return
	}

	conn, err := h.Negotiation.StartAsUser(ctx, *sc.Actor.Profile, org, in.Message)
	if err != nil {
		h.ErrLog.HandleError(w, r, "start connection", userError(err))
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, conn)
}

// HandleStartAsOrg handles POST /programs/{program}/connections/org/{org}:
// an org admin offers a role to a profile named by profile_id or link_id.
func (h *Handler) HandleStartAsOrg(w http.ResponseWriter, r *http.Request) {
	var in startAsOrgInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind connection offer", err)
		return
	}
	if in.ProfileID == "" && in.LinkID == "" {
		h.ErrLog.HandleError(w, r, "bind connection offer", uierrors.BadRequest("profile_id or link_id is required."))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "offer connection", err)
		return
	}
	org, err := sc.OrganizationParam(ctx, h.DB, r, "org")
	if err != nil {
		h.ErrLog.HandleError(w, r, "offer connection", err)
		return
	}
	if !connectionpolicy.CanStartAsOrg(sc.Actor, org) {
		h.ErrLog.HandleError(w, r, "offer connection", uierrors.Forbidden("Organization administrator access required."))
		return
	}

	target, err := h.findProfile(ctx, sc.Program.ID, in.ProfileID, in.LinkID)
	if err != nil {
		h.ErrLog.HandleError(w, r, "offer connection", err)
		return
	}
	if target.IsStudent {
		h.ErrLog.HandleError(w, r, "offer connection", uierrors.BadRequest("Students cannot be offered organization roles."))
		return
	}

	conn, err := h.Negotiation.StartAsOrg(ctx, sc.Actor.UserID, sc.Actor.Name, org, target, in.OrgRole, in.Message)
	if err != nil {
		h.ErrLog.HandleError(w, r, "offer connection", userError(err))
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, conn)
}

func (h *Handler) findProfile(ctx context.Context, programID primitive.ObjectID, profileID, linkID string) (models.Profile, error) {
	profiles := profilestore.New(h.DB)
	if profileID != "" {
		id, err := request.ParseID(profileID, "Profile")
		if err != nil {
			return models.Profile{}, err
		}
		p, err := profiles.GetByID(ctx, id)
		if errors.Is(err, profilestore.ErrNotFound) || (err == nil && p.ProgramID != programID) {
			return models.Profile{}, uierrors.NotFound("Profile not found.")
		}
		return p, err
	}
	found, err := profiles.Find(ctx, bson.M{"program_id": programID, "link_id": normalize.Slug(linkID)})
	if err != nil {
		return models.Profile{}, err
	}
	if len(found) == 0 {
		return models.Profile{}, uierrors.NotFound("Profile not found.")
	}
	return found[0], nil
}
