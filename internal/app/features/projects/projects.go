// internal/app/features/projects/projects.go
package projects

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	projectstore "github.com/dalemusser/melange/internal/app/store/projects"
	"github.com/dalemusser/melange/internal/app/system/paging"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeList handles GET /programs/{program}/projects (?org=, after, limit).
// Accepted projects are public to anyone signed in to the program.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "list projects", err)
		return
	}

	var orgID *primitive.ObjectID
	if key := query.Get(r, "org"); key != "" {
		org, err := sc.OrganizationKey(ctx, h.DB, key)
		if err != nil {
			h.ErrLog.HandleError(w, r, "list projects", err)
			return
		}
		orgID = &org.ID
	}

	page, err := projectstore.New(h.DB).ListPage(ctx, sc.Program.ID, orgID, paging.ParseRequest(r))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list projects", err, "Unable to load projects.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, page)
}

// ServeView handles GET /programs/{program}/projects/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "view project", err)
		return
	}
	id, err := request.ID(r, "id", "Project")
	if err != nil {
		h.ErrLog.HandleError(w, r, "view project", err)
		return
	}
	p, err := projectstore.New(h.DB).GetByID(ctx, id)
	if errors.Is(err, projectstore.ErrNotFound) || (err == nil && p.ProgramID != sc.Program.ID) {
		h.ErrLog.HandleError(w, r, "view project", uierrors.NotFound("Project not found."))
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load project", err, "Unable to load project.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, p)
}
