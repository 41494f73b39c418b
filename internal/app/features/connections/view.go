// internal/app/features/connections/view.go
package connections

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	"github.com/dalemusser/melange/internal/app/policy/connectionpolicy"
	connectionmessagestore "github.com/dalemusser/melange/internal/app/store/connectionmessages"
	connectionstore "github.com/dalemusser/melange/internal/app/store/connections"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.uber.org/zap"
)

type accessView struct {
	UserSide bool `json:"user_side"`
	OrgSide  bool `json:"org_side"`
}

type connectionView struct {
	Connection models.Connection          `json:"connection"`
	Messages   []models.ConnectionMessage `json:"messages"`
	Access     accessView                 `json:"access"`
}

// load resolves {id} within the program and the actor's access to it.
// Connections the actor cannot see are reported as missing.
func (h *Handler) load(ctx context.Context, r *http.Request) (scope.Scope, models.Connection, connectionpolicy.Access, error) {
	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		return scope.Scope{}, models.Connection{}, connectionpolicy.Access{}, err
	}
	id, err := request.ID(r, "id", "Connection")
	if err != nil {
		return scope.Scope{}, models.Connection{}, connectionpolicy.Access{}, err
	}
	conn, err := connectionstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		return scope.Scope{}, models.Connection{}, connectionpolicy.Access{}, userError(err)
	}
	access := connectionpolicy.ForConnection(sc.Actor, conn)
	if conn.ProgramID != sc.Program.ID || !access.CanView() {
		return scope.Scope{}, models.Connection{}, connectionpolicy.Access{}, uierrors.NotFound("Connection not found.")
	}
	return sc, conn, access, nil
}

// ServeView handles GET /programs/{program}/connections/{id}. Viewing
// marks the connection seen for each side the actor acts for.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	_, conn, access, err := h.load(ctx, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "view connection", err)
		return
	}

	conns := connectionstore.New(h.DB)
	if access.UserSide && !conn.SeenByUser {
		if err := conns.MarkSeenByUser(ctx, conn.ID); err != nil {
			h.Log.Warn("mark connection seen by user", zap.Error(err))
		} else {
			conn.SeenByUser = true
		}
	}
	if access.OrgSide && !conn.SeenByOrg {
		if err := conns.MarkSeenByOrg(ctx, conn.ID); err != nil {
			h.Log.Warn("mark connection seen by org", zap.Error(err))
		} else {
			conn.SeenByOrg = true
		}
	}

	msgs, err := connectionmessagestore.New(h.DB).List(ctx, conn.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list connection messages", err, "Unable to load messages.")
		return
	}
	if msgs == nil {
		msgs = []models.ConnectionMessage{}
	}
	uierrors.WriteJSON(w, http.StatusOK, connectionView{
		Connection: conn,
		Messages:   msgs,
		Access:     accessView{UserSide: access.UserSide, OrgSide: access.OrgSide},
	})
}
