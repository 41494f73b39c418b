// internal/app/features/proposals/update.go
package proposals

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	proposalstore "github.com/dalemusser/melange/internal/app/store/proposals"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/app/system/txn"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// updateInput carries the organization's review of a proposal. Nil fields
// are left alone.
type updateInput struct {
	AcceptAsProject *bool     `json:"accept_as_project"`
	MentorIDs       *[]string `json:"mentor_ids"`
	Score           *int      `json:"score"`
}

// HandleUpdate handles PATCH /programs/{program}/proposals/{id}. Mentors
// may score; marking for acceptance and assigning mentors need an org
// admin.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in updateInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind proposal update", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sc, p, err := h.load(ctx, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "update proposal", err)
		return
	}
	if !sc.Actor.CanMentorOrg(p.OrganizationID) {
		h.ErrLog.HandleError(w, r, "update proposal", uierrors.Forbidden("Organization member access required."))
		return
	}
	if (in.AcceptAsProject != nil || in.MentorIDs != nil) && !sc.Actor.CanAdminOrg(p.OrganizationID) {
		h.ErrLog.HandleError(w, r, "update proposal", uierrors.Forbidden("Organization administrator access required."))
		return
	}
	if in.AcceptAsProject != nil && p.Status != models.ProposalPending {
		h.ErrLog.HandleError(w, r, "update proposal", uierrors.Conflict("Only pending proposals can be marked for acceptance."))
		return
	}

	var mentors []primitive.ObjectID
	if in.MentorIDs != nil {
		mentors, err = scope.Mentors(ctx, h.DB, p.OrganizationID, *in.MentorIDs)
		if err != nil {
			h.ErrLog.HandleError(w, r, "update proposal", err)
			return
		}
	}

	store := proposalstore.New(h.DB)
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if in.Score != nil {
			if err := store.SetScore(ctx, p.ID, *in.Score); err != nil {
				return err
			}
		}
		if in.MentorIDs != nil {
			if err := store.SetMentors(ctx, p.ID, mentors); err != nil {
				return err
			}
		}
		if in.AcceptAsProject != nil {
			return store.SetAcceptAsProject(ctx, p.ID, *in.AcceptAsProject)
		}
		return nil
	})
	if err != nil {
		h.ErrLog.HandleError(w, r, "update proposal", userError(err))
		return
	}

	updated, err := store.GetByID(ctx, p.ID)
	if err != nil {
		h.ErrLog.HandleError(w, r, "reload proposal", userError(err))
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, updated)
}
