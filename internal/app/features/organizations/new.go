// internal/app/features/organizations/new.go
package organizations

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	organizationstore "github.com/dalemusser/melange/internal/app/store/organizations"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.uber.org/zap"
)

type applyInput struct {
	OrgID        string `json:"org_id" validate:"max=64" label:"Organization ID"`
	Name         string `json:"name" validate:"required,max=200" label:"Name"`
	ContactEmail string `json:"contact_email" validate:"required,email" label:"Contact email"`
	Description  string `json:"description" validate:"max=5000" label:"Description"`
}

type applyResponse struct {
	Organization models.Organization `json:"organization"`
	Connection   models.Connection   `json:"connection"`
}

// HandleApply handles POST /programs/{program}/organizations. The
// applicant's profile becomes the new organization's admin.
func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	var in applyInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind organization application", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "apply organization", err)
		return
	}
	profile, err := sc.RequireProfile()
	if err != nil {
		h.ErrLog.HandleError(w, r, "apply organization", err)
		return
	}
	if profile.IsStudent {
		h.ErrLog.HandleError(w, r, "apply organization", uierrors.Forbidden("Students cannot apply on behalf of an organization."))
		return
	}

	org, conn, err := h.Negotiation.Apply(ctx, profile, models.Organization{
		OrgID:        in.OrgID,
		Name:         in.Name,
		ContactEmail: in.ContactEmail,
		Description:  in.Description,
	})
	if errors.Is(err, organizationstore.ErrDuplicateOrganization) {
		h.ErrLog.HandleError(w, r, "apply organization", uierrors.Conflict("An organization with this id already exists in the program."))
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "apply organization", err, "Failed to submit application.")
		return
	}

	h.AuditLog.OrgApplied(ctx, r, sc.Actor.UserID, org)
	h.Log.Info("organization applied",
		zap.String("program", sc.Program.Slug),
		zap.String("org_id", org.OrgID))
	uierrors.WriteJSON(w, http.StatusCreated, applyResponse{Organization: org, Connection: conn})
}
