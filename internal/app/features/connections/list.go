// internal/app/features/connections/list.go
package connections

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	connectionstore "github.com/dalemusser/melange/internal/app/store/connections"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

type listResponse struct {
	Items []models.Connection `json:"items"`
}

func unseenOnly(r *http.Request) bool {
	v := query.Get(r, "unseen")
	return v == "1" || v == "true" || v == "yes"
}

// ServeMine handles GET /programs/{program}/connections (?unseen=1).
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "list my connections", err)
		return
	}
	list, err := connectionstore.New(h.DB).ListForUser(ctx, sc.Actor.UserID, sc.Program.ID, unseenOnly(r))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list my connections", err, "Unable to load connections.")
		return
	}
	if list == nil {
		list = []models.Connection{}
	}
	uierrors.WriteJSON(w, http.StatusOK, listResponse{Items: list})
}

// ServeForOrg handles GET /programs/{program}/connections/org/{org}
// (org admins, ?unseen=1).
func (h *Handler) ServeForOrg(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "list org connections", err)
		return
	}
	org, err := sc.OrganizationParam(ctx, h.DB, r, "org")
	if err != nil {
		h.ErrLog.HandleError(w, r, "list org connections", err)
		return
	}
	if err := sc.RequireOrgAdmin(org); err != nil {
		h.ErrLog.HandleError(w, r, "list org connections", err)
		return
	}
	list, err := connectionstore.New(h.DB).ListForOrg(ctx, org.ID, unseenOnly(r))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list org connections", err, "Unable to load connections.")
		return
	}
	if list == nil {
		list = []models.Connection{}
	}
	uierrors.WriteJSON(w, http.StatusOK, listResponse{Items: list})
}
