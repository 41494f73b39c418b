// internal/app/features/connections/roles.go
package connections

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	"github.com/dalemusser/melange/internal/app/system/negotiation"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
)

type userRoleInput struct {
	Role string `json:"role" validate:"required,userrole" label:"Role"`
}

type orgRoleInput struct {
	Role string `json:"role" validate:"required,orgrole" label:"Role"`
}

type roleResponse struct {
	Connection models.Connection         `json:"connection"`
	Changed    bool                      `json:"changed"`
	Message    *models.ConnectionMessage `json:"message,omitempty"`
}

func respond(res negotiation.Result) roleResponse {
	return roleResponse{Connection: res.Connection, Changed: res.Changed, Message: res.Message}
}

// HandleUserRole handles POST /programs/{program}/connections/{id}/user_role.
// Selecting the stored role again is a no-op.
func (h *Handler) HandleUserRole(w http.ResponseWriter, r *http.Request) {
	var in userRoleInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind user role", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sc, conn, access, err := h.load(ctx, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "select user role", err)
		return
	}
	if !access.UserSide {
		h.ErrLog.HandleError(w, r, "select user role", uierrors.Forbidden("Only the connected user may change the user role."))
		return
	}

	res, err := h.Negotiation.UserSelects(ctx, conn.ID, sc.Actor.UserID, in.Role)
	if err != nil {
		h.ErrLog.HandleError(w, r, "select user role", userError(err))
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, respond(res))
}

// HandleOrgRole handles POST /programs/{program}/connections/{id}/org_role.
func (h *Handler) HandleOrgRole(w http.ResponseWriter, r *http.Request) {
	var in orgRoleInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind org role", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sc, conn, access, err := h.load(ctx, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "select org role", err)
		return
	}
	if !access.OrgSide {
		h.ErrLog.HandleError(w, r, "select org role", uierrors.Forbidden("Organization administrator access required."))
		return
	}

	res, err := h.Negotiation.OrgSelects(ctx, conn.ID, sc.Actor.UserID, sc.Actor.Name, in.Role)
	if err != nil {
		h.ErrLog.HandleError(w, r, "select org role", userError(err))
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, respond(res))
}
