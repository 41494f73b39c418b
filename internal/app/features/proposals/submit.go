// internal/app/features/proposals/submit.go
package proposals

import (
	"context"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	proposalstore "github.com/dalemusser/melange/internal/app/store/proposals"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
)

type submitInput struct {
	OrganizationID string `json:"organization_id" validate:"required,objectid" label:"Organization"`
	Title          string `json:"title" validate:"required,max=200" label:"Title"`
	Abstract       string `json:"abstract" validate:"max=20000" label:"Abstract"`
}

// HandleSubmit handles POST /programs/{program}/proposals. Only students
// submit, and only to accepted organizations.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var in submitInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind proposal", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "submit proposal", err)
		return
	}
	profile, err := sc.RequireProfile()
	if err != nil {
		h.ErrLog.HandleError(w, r, "submit proposal", err)
		return
	}
	if !profile.IsStudent {
		h.ErrLog.HandleError(w, r, "submit proposal", uierrors.Forbidden("Only students may submit proposals."))
		return
	}
	orgID, err := request.ParseID(in.OrganizationID, "Organization")
	if err != nil {
		h.ErrLog.HandleError(w, r, "submit proposal", err)
		return
	}
	org, err := sc.Organization(ctx, h.DB, orgID)
	if err != nil {
		h.ErrLog.HandleError(w, r, "submit proposal", err)
		return
	}
	if org.Status != models.OrgStatusAccepted {
		h.ErrLog.HandleError(w, r, "submit proposal", uierrors.BadRequest("This organization is not accepting proposals."))
		return
	}

	p, err := proposalstore.New(h.DB).Create(ctx, models.Proposal{
		ProgramID:        sc.Program.ID,
		OrganizationID:   org.ID,
		StudentProfileID: profile.ID,
		Title:            strings.TrimSpace(in.Title),
		Abstract:         in.Abstract,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create proposal", err, "Unable to submit proposal.")
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, p)
}

// HandleWithdraw handles POST /programs/{program}/proposals/{id}/withdraw.
// Only the submitting student may withdraw, and only while pending.
func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, p, err := h.load(ctx, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "withdraw proposal", err)
		return
	}
	if p.StudentProfileID != sc.Actor.ProfileID() {
		h.ErrLog.HandleError(w, r, "withdraw proposal", uierrors.Forbidden("Only the student may withdraw the proposal."))
		return
	}
	if p.Status != models.ProposalPending {
		h.ErrLog.HandleError(w, r, "withdraw proposal", uierrors.Conflict("Only pending proposals can be withdrawn."))
		return
	}

	store := proposalstore.New(h.DB)
	if err := store.SetStatus(ctx, p.ID, models.ProposalWithdrawn); err != nil {
		h.ErrLog.HandleError(w, r, "withdraw proposal", userError(err))
		return
	}
	p.Status = models.ProposalWithdrawn
	uierrors.WriteJSON(w, http.StatusOK, p)
}
