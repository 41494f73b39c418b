// internal/app/features/organizations/edit.go
package organizations

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	organizationstore "github.com/dalemusser/melange/internal/app/store/organizations"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
)

type editInput struct {
	Name           string `json:"name" validate:"max=200" label:"Name"`
	ContactEmail   string `json:"contact_email" validate:"email" label:"Contact email"`
	Description    string `json:"description" validate:"max=5000" label:"Description"`
	SlotAllocation *int   `json:"slot_allocation"`
}

// HandleEdit handles PATCH /programs/{program}/organizations/{org}.
// Org admins edit the profile fields; only site admins set slots.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	var in editInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind organization edit", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "edit organization", err)
		return
	}
	org, err := sc.OrganizationParam(ctx, h.DB, r, "org")
	if err != nil {
		h.ErrLog.HandleError(w, r, "edit organization", err)
		return
	}
	if err := sc.RequireOrgAdmin(org); err != nil {
		h.ErrLog.HandleError(w, r, "edit organization", err)
		return
	}
	if in.SlotAllocation != nil {
		if err := sc.RequireAdmin(); err != nil {
			h.ErrLog.HandleError(w, r, "edit organization", err)
			return
		}
		if *in.SlotAllocation < 0 {
			h.ErrLog.HandleError(w, r, "edit organization", uierrors.BadRequest("Slot allocation cannot be negative."))
			return
		}
	}

	store := organizationstore.New(h.DB)
	if err := store.Update(ctx, org.ID, organizationstore.Update{
		Name:           in.Name,
		ContactEmail:   in.ContactEmail,
		Description:    in.Description,
		SlotAllocation: in.SlotAllocation,
	}); err != nil {
		h.ErrLog.LogServerError(w, r, "update organization", err, "Failed to update organization.")
		return
	}
	updated, err := store.GetByID(ctx, org.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "reload organization", err, "Failed to load organization.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, updated)
}
