// internal/app/features/organizations/decide.go
package organizations

import (
	"context"
	"errors"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	organizationstore "github.com/dalemusser/melange/internal/app/store/organizations"
	"github.com/dalemusser/melange/internal/app/system/taskqueue"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type decideInput struct {
	Status string `json:"status" validate:"required,oneof=pre_accepted pre_rejected applying" label:"Status"`
}

// HandleDecide handles POST /programs/{program}/organizations/{org}/decision
// (admin). Decisions stay private until the apply-decisions job runs.
func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	var in decideInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind organization decision", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "decide organization", err)
		return
	}
	if err := sc.RequireAdmin(); err != nil {
		h.ErrLog.HandleError(w, r, "decide organization", err)
		return
	}
	org, err := sc.OrganizationParam(ctx, h.DB, r, "org")
	if err != nil {
		h.ErrLog.HandleError(w, r, "decide organization", err)
		return
	}

	updated, err := organizationstore.New(h.DB).Decide(ctx, org.ID, in.Status)
	if errors.Is(err, organizationstore.ErrDecisionClosed) {
		h.ErrLog.HandleError(w, r, "decide organization", uierrors.Conflict("The admission result for this organization was already published."))
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "decide organization", err, "Failed to record decision.")
		return
	}

	h.AuditLog.OrgDecision(ctx, r, sc.Actor.UserID, updated, in.Status)
	uierrors.WriteJSON(w, http.StatusOK, updated)
}

// HandleApplyDecisions handles POST /programs/{program}/organizations/apply_decisions
// (admin). It queues the job that publishes every pending decision.
func (h *Handler) HandleApplyDecisions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "apply decisions", err)
		return
	}
	if err := sc.RequireAdmin(); err != nil {
		h.ErrLog.HandleError(w, r, "apply decisions", err)
		return
	}

	if err := taskqueue.ApplyDecisions.Enqueue(ctx, h.Tasks, map[string]string{
		"program_key": sc.Program.ID.Hex(),
	}, time.Time{}); err != nil {
		h.ErrLog.LogServerError(w, r, "enqueue apply decisions", err, "Failed to start the job.")
		return
	}

	h.AuditLog.BatchJobTriggered(ctx, r, sc.Actor.UserID, sc.Program.ID, taskqueue.ApplyDecisions.Name)
	h.Log.Info("apply decisions queued", zap.String("program", sc.Program.Slug))
	uierrors.WriteJSON(w, http.StatusAccepted, map[string]string{"job": taskqueue.ApplyDecisions.Name})
}
