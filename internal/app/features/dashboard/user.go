// internal/app/features/dashboard/user.go
package dashboard

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	connectionstore "github.com/dalemusser/melange/internal/app/store/connections"
	conversationstore "github.com/dalemusser/melange/internal/app/store/conversations"
	conversationuserstore "github.com/dalemusser/melange/internal/app/store/conversationusers"
	profilestore "github.com/dalemusser/melange/internal/app/store/profiles"
	programstore "github.com/dalemusser/melange/internal/app/store/programs"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type profileSummary struct {
	Profile     models.Profile `json:"profile"`
	ProgramSlug string         `json:"program_slug"`
	ProgramName string         `json:"program_name"`
}

type userSummary struct {
	Profiles            []profileSummary `json:"profiles"`
	UnseenConnections   int64            `json:"unseen_connections"`
	UnseenOrgRequests   int64            `json:"unseen_org_requests"`
	UnreadConversations int              `json:"unread_conversations"`
}

// ServeDashboard handles GET /dashboard: the signed-in user's profiles and
// what is waiting for them across programs.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	userID, _, err := request.User(r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "dashboard", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout)
	defer cancel()

	profiles, err := profilestore.New(h.DB).ListByUser(ctx, userID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "dashboard profiles", err, "Unable to load dashboard.")
		return
	}

	var out userSummary
	var adminOrgs []primitive.ObjectID
	programs := programstore.New(h.DB)
	for _, p := range profiles {
		ps := profileSummary{Profile: p}
		if prog, err := programs.GetByID(ctx, p.ProgramID); err == nil {
			ps.ProgramSlug, ps.ProgramName = prog.Slug, prog.Name
		}
		out.Profiles = append(out.Profiles, ps)
		adminOrgs = append(adminOrgs, p.OrgAdminFor...)
	}

	conns := connectionstore.New(h.DB)
	if out.UnseenConnections, err = conns.CountUnseenByUser(ctx, userID); err != nil {
		h.ErrLog.LogServerError(w, r, "dashboard connections", err, "Unable to load dashboard.")
		return
	}
	if out.UnseenOrgRequests, err = conns.CountUnseenByOrgs(ctx, adminOrgs); err != nil {
		h.ErrLog.LogServerError(w, r, "dashboard connections", err, "Unable to load dashboard.")
		return
	}
	if out.UnreadConversations, err = h.unreadConversations(ctx, userID); err != nil {
		h.ErrLog.LogServerError(w, r, "dashboard conversations", err, "Unable to load dashboard.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, out)
}

// unreadConversations counts conversations with activity after the user
// last looked.
func (h *Handler) unreadConversations(ctx context.Context, userID primitive.ObjectID) (int, error) {
	cus, err := conversationuserstore.New(h.DB).ListForUser(ctx, userID, nil)
	if err != nil || len(cus) == 0 {
		return 0, err
	}
	seen := make(map[primitive.ObjectID]models.ConversationUser, len(cus))
	ids := make([]primitive.ObjectID, 0, len(cus))
	for _, cu := range cus {
		seen[cu.ConversationID] = cu
		ids = append(ids, cu.ConversationID)
	}
	convs, err := conversationstore.New(h.DB).GetByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range convs {
		if c.LastMessageOn.After(seen[c.ID].LastMessageSeenOn) {
			n++
		}
	}
	return n, nil
}
