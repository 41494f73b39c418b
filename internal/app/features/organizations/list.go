// internal/app/features/organizations/list.go
package organizations

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	organizationstore "github.com/dalemusser/melange/internal/app/store/organizations"
	"github.com/dalemusser/melange/internal/app/system/paging"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

// ServeList handles GET /programs/{program}/organizations
// (?status=&q=&after=&limit=).
// Site admins may filter by any status; everyone else sees accepted
// organizations only.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "list organizations", err)
		return
	}

	status := query.Get(r, "status")
	if !sc.Actor.IsAdmin {
		status = models.OrgStatusAccepted
	} else if status != "" && !organizationstore.ValidStatus(status) {
		h.ErrLog.HandleError(w, r, "list organizations", uierrors.BadRequest("Unknown organization status."))
		return
	}

	page, err := organizationstore.New(h.DB).ListPage(ctx, organizationstore.ListFilter{
		ProgramID: sc.Program.ID,
		Status:    status,
		Query:     query.Search(r, "q"),
	}, paging.ParseRequest(r))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list organizations", err, "Unable to load organizations.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, page)
}
