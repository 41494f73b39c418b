// internal/app/features/proposals/list.go
package proposals

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	proposalstore "github.com/dalemusser/melange/internal/app/store/proposals"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

type listResponse struct {
	Items []models.Proposal `json:"items"`
}

func items(list []models.Proposal) listResponse {
	if list == nil {
		list = []models.Proposal{}
	}
	return listResponse{Items: list}
}

// ServeMine handles GET /programs/{program}/proposals: the signed-in
// student's proposals.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "list my proposals", err)
		return
	}
	profile, err := sc.RequireProfile()
	if err != nil {
		h.ErrLog.HandleError(w, r, "list my proposals", err)
		return
	}
	list, err := proposalstore.New(h.DB).ListByStudent(ctx, sc.Program.ID, profile.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list my proposals", err, "Unable to load proposals.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, items(list))
}

// ServeForOrg handles GET /programs/{program}/proposals/org/{org}
// (?status=). Mentors and org admins of the organization only.
func (h *Handler) ServeForOrg(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "list org proposals", err)
		return
	}
	org, err := sc.OrganizationParam(ctx, h.DB, r, "org")
	if err != nil {
		h.ErrLog.HandleError(w, r, "list org proposals", err)
		return
	}
	if err := sc.RequireOrgMember(org); err != nil {
		h.ErrLog.HandleError(w, r, "list org proposals", err)
		return
	}

	status := query.Get(r, "status")
	switch status {
	case "", models.ProposalPending, models.ProposalAccepted, models.ProposalRejected,
		models.ProposalWithdrawn, models.ProposalIgnored:
	default:
		h.ErrLog.HandleError(w, r, "list org proposals", uierrors.BadRequest("Unknown proposal status."))
		return
	}

	list, err := proposalstore.New(h.DB).ListByOrg(ctx, org.ID, status)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list org proposals", err, "Unable to load proposals.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, items(list))
}

// load resolves {id} in the program scope. Only the student, members of
// the organization and site admins see a proposal.
func (h *Handler) load(ctx context.Context, r *http.Request) (scope.Scope, models.Proposal, error) {
	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		return scope.Scope{}, models.Proposal{}, err
	}
	id, err := request.ID(r, "id", "Proposal")
	if err != nil {
		return scope.Scope{}, models.Proposal{}, err
	}
	p, err := proposalstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		return scope.Scope{}, models.Proposal{}, userError(err)
	}
	if p.ProgramID != sc.Program.ID {
		return scope.Scope{}, models.Proposal{}, uierrors.NotFound("Proposal not found.")
	}
	owner := sc.Actor.Profile != nil && p.StudentProfileID == sc.Actor.Profile.ID
	if !owner && !sc.Actor.CanMentorOrg(p.OrganizationID) {
		return scope.Scope{}, models.Proposal{}, uierrors.NotFound("Proposal not found.")
	}
	return sc, p, nil
}

// ServeView handles GET /programs/{program}/proposals/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	_, p, err := h.load(ctx, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "view proposal", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, p)
}
