// internal/app/features/conversations/messages.go
package conversations

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	conversationstore "github.com/dalemusser/melange/internal/app/store/conversations"
	conversationuserstore "github.com/dalemusser/melange/internal/app/store/conversationusers"
	messagestore "github.com/dalemusser/melange/internal/app/store/messages"
	"github.com/dalemusser/melange/internal/app/system/htmlsanitize"
	"github.com/dalemusser/melange/internal/app/system/mailer"
	"github.com/dalemusser/melange/internal/app/system/paging"
	"github.com/dalemusser/melange/internal/app/system/taskqueue"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.uber.org/zap"
)

// ServeMessages handles GET /{id}/messages, one keyset page in send order.
func (h *Handler) ServeMessages(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	_, conv, _, err := h.load(ctx, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "list messages", err)
		return
	}
	page, err := messagestore.New(h.DB).ListPage(ctx, conv.ID, paging.ParseRequest(r))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list messages", err, "Unable to load messages.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, page)
}

type messageInput struct {
	Content string `json:"content" validate:"required,max=20000" label:"Message"`
}

// HandlePost handles POST /{id}/messages.
func (h *Handler) HandlePost(w http.ResponseWriter, r *http.Request) {
	var in messageInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind message", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sc, conv, _, err := h.load(ctx, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "post message", err)
		return
	}
	msg, err := h.post(ctx, sc, conv, in.Content)
	if err != nil {
		h.ErrLog.HandleError(w, r, "post message", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, msg)
}

// post stores a sanitized message, advances the conversation and the
// author's read marker, and queues mail for subscribers.
func (h *Handler) post(ctx context.Context, sc scope.Scope, conv models.Conversation, content string) (models.Message, error) {
	clean := htmlsanitize.Message(content)
	if clean == "" {
		return models.Message{}, uierrors.BadRequest("Message is empty.")
	}
	msg, err := h.store(ctx, sc, conv, clean)
	if err != nil {
		return models.Message{}, err
	}
	h.notify(ctx, sc, conv, msg)
	return msg, nil
}

// store writes an already sanitized message without notifying anyone.
func (h *Handler) store(ctx context.Context, sc scope.Scope, conv models.Conversation, clean string) (models.Message, error) {
	msg, err := messagestore.New(h.DB).Create(ctx, conv.ID, sc.Actor.UserID, clean)
	if err != nil {
		return models.Message{}, err
	}
	if err := conversationstore.New(h.DB).TouchLastMessage(ctx, conv.ID, msg.SentOn); err != nil {
		return models.Message{}, err
	}
	if err := conversationuserstore.New(h.DB).MarkRead(ctx, conv.ID, sc.Actor.UserID, msg.SentOn); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

func (h *Handler) notify(ctx context.Context, sc scope.Scope, conv models.Conversation, msg models.Message) {
	if h.Tasks == nil {
		return
	}
	emails, err := h.Participants.SubscriberEmails(ctx, conv.ID, sc.Actor.UserID)
	if err != nil {
		h.Log.Warn("subscriber lookup failed", zap.String("conversation_id", conv.ID.Hex()), zap.Error(err))
		return
	}
	url := h.BaseURL + "/programs/" + sc.Program.Slug + "/conversations/" + conv.ID.Hex()
	for _, to := range emails {
		e := mailer.BuildConversationNotice(conv.Subject, sc.Actor.Name, htmlsanitize.Text(msg.Content), url)
		e.To = to
		if err := taskqueue.EnqueueMail(ctx, h.Tasks, e); err != nil {
			h.Log.Warn("queue conversation notice failed",
				zap.String("conversation_id", conv.ID.Hex()), zap.Error(err))
		}
	}
}
