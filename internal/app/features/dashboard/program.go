// internal/app/features/dashboard/program.go
package dashboard

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	metricsstore "github.com/dalemusser/melange/internal/app/store/metrics"
	"github.com/dalemusser/melange/internal/domain/models"
)

type programSummary struct {
	Program models.Program             `json:"program"`
	Counts  metricsstore.ProgramCounts `json:"counts"`
}

// ServeProgram handles GET /programs/{program}/dashboard for site admins.
func (h *Handler) ServeProgram(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout)
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "program dashboard", err)
		return
	}
	if err := sc.RequireAdmin(); err != nil {
		h.ErrLog.HandleError(w, r, "program dashboard", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, programSummary{
		Program: sc.Program,
		Counts:  metricsstore.FetchProgramCounts(ctx, h.DB, sc.Program.ID),
	})
}
