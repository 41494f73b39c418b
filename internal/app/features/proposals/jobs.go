// internal/app/features/proposals/jobs.go
package proposals

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	"github.com/dalemusser/melange/internal/app/system/taskqueue"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type duplicatesStartInput struct {
	// Repeat keeps recalculating on the configured interval.
	Repeat bool `json:"repeat"`
}

// HandleStartDuplicates handles POST /programs/{program}/proposals/duplicates
// (admin).
func (h *Handler) HandleStartDuplicates(w http.ResponseWriter, r *http.Request) {
	var in duplicatesStartInput
	if r.ContentLength != 0 {
		if err := request.Bind(w, r, &in); err != nil {
			h.ErrLog.HandleError(w, r, "bind duplicates start", err)
			return
		}
	}
	params := map[string]string{}
	if in.Repeat {
		params["repeat"] = "yes"
	}
	h.trigger(w, r, taskqueue.DuplicatesStart, params)
}

// HandleAcceptProposals handles POST /programs/{program}/proposals/accept
// (admin). The job turns every proposal marked accept_as_project into a
// project and rejects the rest.
func (h *Handler) HandleAcceptProposals(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, taskqueue.AcceptProposalsMain, map[string]string{})
}

func (h *Handler) trigger(w http.ResponseWriter, r *http.Request, kind taskqueue.Kind, params map[string]string) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, kind.Name, err)
		return
	}
	if err := sc.RequireAdmin(); err != nil {
		h.ErrLog.HandleError(w, r, kind.Name, err)
		return
	}

	params["program_key"] = sc.Program.ID.Hex()
	if err := kind.Enqueue(ctx, h.Tasks, params, time.Time{}); err != nil {
		h.ErrLog.LogServerError(w, r, "enqueue "+kind.Name, err, "Failed to start the job.")
		return
	}

	h.AuditLog.BatchJobTriggered(ctx, r, sc.Actor.UserID, sc.Program.ID, kind.Name)
	h.Log.Info("batch job queued", zap.String("job", kind.Name), zap.String("program", sc.Program.Slug))
	uierrors.WriteJSON(w, http.StatusAccepted, map[string]string{"job": kind.Name})
}
