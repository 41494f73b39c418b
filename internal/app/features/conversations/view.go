// internal/app/features/conversations/view.go
package conversations

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	conversationuserstore "github.com/dalemusser/melange/internal/app/store/conversationusers"
	userstore "github.com/dalemusser/melange/internal/app/store/users"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type participant struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

type conversationView struct {
	Conversation        models.Conversation `json:"conversation"`
	Participants        []participant       `json:"participants"`
	EnableNotifications bool                `json:"enable_notifications"`
}

// ServeView handles GET /{id}. Opening a conversation marks it read.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sc, conv, cu, err := h.load(ctx, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "view conversation", err)
		return
	}
	cus := conversationuserstore.New(h.DB)
	ids, err := cus.UserIDs(ctx, conv.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "view conversation", err, "Unable to load participants.")
		return
	}
	users, err := userstore.New(h.DB).ListByIDs(ctx, ids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "view conversation", err, "Unable to load participants.")
		return
	}
	if err := cus.MarkRead(ctx, conv.ID, sc.Actor.UserID, conv.LastMessageOn); err != nil {
		h.ErrLog.LogServerError(w, r, "view conversation", err, "Unable to update conversation.")
		return
	}

	v := conversationView{Conversation: conv, EnableNotifications: cu.EnableNotifications}
	for _, u := range users {
		v.Participants = append(v.Participants, participant{ID: u.ID, Name: u.FullName})
	}
	uierrors.WriteJSON(w, http.StatusOK, v)
}

// HandleRead handles POST /{id}/read.
func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, conv, _, err := h.load(ctx, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "mark read", err)
		return
	}
	if err := conversationuserstore.New(h.DB).MarkRead(ctx, conv.ID, sc.Actor.UserID, conv.LastMessageOn); err != nil {
		h.ErrLog.LogServerError(w, r, "mark read", err, "Unable to update conversation.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type notificationsInput struct {
	Enabled *bool `json:"enabled"`
}

// HandleNotifications handles PUT /{id}/notifications.
func (h *Handler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	var in notificationsInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind notifications", err)
		return
	}
	if in.Enabled == nil {
		h.ErrLog.HandleError(w, r, "set notifications", uierrors.BadRequest("Enabled is required."))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, conv, _, err := h.load(ctx, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "set notifications", err)
		return
	}
	if err := conversationuserstore.New(h.DB).SetNotifications(ctx, conv.ID, sc.Actor.UserID, *in.Enabled); err != nil {
		h.ErrLog.LogServerError(w, r, "set notifications", err, "Unable to update conversation.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]bool{"enable_notifications": *in.Enabled})
}
