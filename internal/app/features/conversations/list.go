// internal/app/features/conversations/list.go
package conversations

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	conversationstore "github.com/dalemusser/melange/internal/app/store/conversations"
	conversationuserstore "github.com/dalemusser/melange/internal/app/store/conversationusers"
	messagestore "github.com/dalemusser/melange/internal/app/store/messages"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type conversationRow struct {
	models.Conversation
	Unread              int64 `json:"unread"`
	EnableNotifications bool  `json:"enable_notifications"`
}

type unreadView struct {
	Conversations int   `json:"conversations"`
	Messages      int64 `json:"messages"`
}

// mine returns the actor's conversations in the program, newest activity
// first, with unread counts.
func (h *Handler) mine(ctx context.Context, sc scope.Scope) ([]conversationRow, error) {
	cus, err := conversationuserstore.New(h.DB).ListForUser(ctx, sc.Actor.UserID, &sc.Program.ID)
	if err != nil {
		return nil, err
	}
	byConv := make(map[primitive.ObjectID]models.ConversationUser, len(cus))
	ids := make([]primitive.ObjectID, 0, len(cus))
	for _, cu := range cus {
		byConv[cu.ConversationID] = cu
		ids = append(ids, cu.ConversationID)
	}
	convs, err := conversationstore.New(h.DB).GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	msgs := messagestore.New(h.DB)
	out := make([]conversationRow, 0, len(convs))
	for _, c := range convs {
		cu := byConv[c.ID]
		row := conversationRow{Conversation: c, EnableNotifications: cu.EnableNotifications}
		if c.LastMessageOn.After(cu.LastMessageSeenOn) {
			if row.Unread, err = msgs.CountSince(ctx, c.ID, cu.LastMessageSeenOn); err != nil {
				return nil, err
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// ServeList handles GET /programs/{program}/conversations.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "list conversations", err)
		return
	}
	rows, err := h.mine(ctx, sc)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list conversations", err, "Unable to load conversations.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]any{"items": rows})
}

// ServeUnread handles GET /unread, the totals behind the inbox badge.
func (h *Handler) ServeUnread(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "unread conversations", err)
		return
	}
	rows, err := h.mine(ctx, sc)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "unread conversations", err, "Unable to load conversations.")
		return
	}
	var v unreadView
	for _, row := range rows {
		if row.Unread > 0 {
			v.Conversations++
			v.Messages += row.Unread
		}
	}
	uierrors.WriteJSON(w, http.StatusOK, v)
}
