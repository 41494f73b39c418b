// internal/app/features/proposals/duplicates.go
package proposals

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	duplicatestore "github.com/dalemusser/melange/internal/app/store/duplicates"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type duplicatesResponse struct {
	Status models.DuplicatesStatus    `json:"status"`
	Items  []models.ProposalDuplicate `json:"items"`
}

// ServeDuplicates handles GET /programs/{program}/proposals/duplicates
// (?org=). Site admins see every duplicate. Org admins see those involving
// their organization once the program makes duplicates visible.
func (h *Handler) ServeDuplicates(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "list duplicates", err)
		return
	}

	var orgID *primitive.ObjectID
	if key := query.Get(r, "org"); key != "" {
		org, err := sc.OrganizationKey(ctx, h.DB, key)
		if err != nil {
			h.ErrLog.HandleError(w, r, "list duplicates", err)
			return
		}
		orgID = &org.ID
	}

	if !sc.Actor.IsAdmin {
		switch {
		case !sc.Program.DuplicatesVisible:
			h.ErrLog.HandleError(w, r, "list duplicates", uierrors.Forbidden("Duplicates are not visible in this program."))
			return
		case orgID == nil || !sc.Actor.CanAdminOrg(*orgID):
			h.ErrLog.HandleError(w, r, "list duplicates", uierrors.Forbidden("Organization administrator access required."))
			return
		}
	}

	store := duplicatestore.New(h.DB)
	status, err := store.GetStatus(ctx, sc.Program.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load duplicates status", err, "Unable to load duplicates.")
		return
	}
	list, err := store.ListDuplicates(ctx, sc.Program.ID, orgID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list duplicates", err, "Unable to load duplicates.")
		return
	}
	if list == nil {
		list = []models.ProposalDuplicate{}
	}
	uierrors.WriteJSON(w, http.StatusOK, duplicatesResponse{Status: status, Items: list})
}
