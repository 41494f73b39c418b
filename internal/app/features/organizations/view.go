// internal/app/features/organizations/view.go
package organizations

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
)

type orgView struct {
	models.Organization
	CanAdmin  bool `json:"can_admin"`
	CanMentor bool `json:"can_mentor"`
}

// ServeView handles GET /programs/{program}/organizations/{org}.
// Organizations that are not accepted are visible to their members and
// site admins only.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "view organization", err)
		return
	}
	org, err := sc.OrganizationParam(ctx, h.DB, r, "org")
	if err != nil {
		h.ErrLog.HandleError(w, r, "view organization", err)
		return
	}
	canMentor := sc.Actor.CanMentorOrg(org.ID)
	if org.Status != models.OrgStatusAccepted && !canMentor {
		h.ErrLog.HandleError(w, r, "view organization", uierrors.NotFound("Organization not found."))
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, orgView{
		Organization: org,
		CanAdmin:     sc.Actor.CanAdminOrg(org.ID),
		CanMentor:    canMentor,
	})
}
