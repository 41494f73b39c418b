// internal/app/features/orgtasks/lifecycle.go
package orgtasks

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	orgtaskstore "github.com/dalemusser/melange/internal/app/store/orgtasks"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HandleClaim handles POST /programs/{program}/org_tasks/{id}/claim.
// Students take an open task of an accepted organization.
func (h *Handler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, t, err := h.load(ctx, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "claim task", err)
		return
	}
	if !sc.Actor.IsStudent() {
		h.ErrLog.HandleError(w, r, "claim task", uierrors.Forbidden("Only students may claim tasks."))
		return
	}

	claimed, err := orgtaskstore.New(h.DB).Claim(ctx, t.ID, sc.Actor.ProfileID())
	if err != nil {
		h.ErrLog.HandleError(w, r, "claim task", userError(err))
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, claimed)
}

// HandleSubmit handles POST /programs/{program}/org_tasks/{id}/submit. Only
// the claiming student may send work for review.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, t, err := h.load(ctx, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "submit task", err)
		return
	}
	if t.StudentProfileID == nil || *t.StudentProfileID != sc.Actor.ProfileID() {
		h.ErrLog.HandleError(w, r, "submit task", uierrors.Forbidden("Only the student working on the task may submit it."))
		return
	}

	submitted, err := orgtaskstore.New(h.DB).SubmitForReview(ctx, t.ID, sc.Actor.ProfileID())
	if err != nil {
		h.ErrLog.HandleError(w, r, "submit task", userError(err))
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, submitted)
}

// HandleClose handles POST /programs/{program}/org_tasks/{id}/close.
func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "close task", (*orgtaskstore.Store).Close)
}

// HandleReopen handles POST /programs/{program}/org_tasks/{id}/reopen. The
// student is unassigned.
func (h *Handler) HandleReopen(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "reopen task", (*orgtaskstore.Store).Reopen)
}

// review runs a mentor decision. The task's mentors and org admins decide.
func (h *Handler) review(w http.ResponseWriter, r *http.Request, op string, apply func(*orgtaskstore.Store, context.Context, primitive.ObjectID) (models.OrgTask, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, t, err := h.load(ctx, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, op, err)
		return
	}
	if !canReview(sc.Actor.CanAdminOrg(t.OrganizationID), sc.Actor.ProfileID(), t) {
		h.ErrLog.HandleError(w, r, op, uierrors.Forbidden("Only the task's mentors may do this."))
		return
	}

	out, err := apply(orgtaskstore.New(h.DB), ctx, t.ID)
	if err != nil {
		h.ErrLog.HandleError(w, r, op, userError(err))
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, out)
}

func canReview(orgAdmin bool, profileID primitive.ObjectID, t models.OrgTask) bool {
	if orgAdmin {
		return true
	}
	for _, id := range t.MentorIDs {
		if id == profileID {
			return true
		}
	}
	return false
}
