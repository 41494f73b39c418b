// internal/app/features/connections/messages.go
package connections

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	"github.com/dalemusser/melange/internal/app/system/negotiation"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
)

type messageInput struct {
	Content string `json:"content" validate:"required,max=10000" label:"Message"`
	// As picks the side when the actor holds both; defaults to the user side.
	As string `json:"as" validate:"oneof=user org" label:"Side"`
}

// HandleMessage handles POST /programs/{program}/connections/{id}/messages.
// The other side sees the connection as unseen afterwards.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var in messageInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind connection message", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, conn, access, err := h.load(ctx, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "post connection message", err)
		return
	}

	side := negotiation.SideUser
	switch {
	case in.As == negotiation.SideOrg && access.OrgSide:
		side = negotiation.SideOrg
	case in.As == negotiation.SideOrg:
		h.ErrLog.HandleError(w, r, "post connection message", uierrors.Forbidden("Organization administrator access required."))
		return
	case !access.UserSide:
		side = negotiation.SideOrg
	}

	msg, err := h.Negotiation.PostMessage(ctx, conn.ID, sc.Actor.UserID, side, in.Content)
	if err != nil {
		h.ErrLog.HandleError(w, r, "post connection message", userError(err))
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, msg)
}
