// internal/app/features/conversations/handler.go
package conversations

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	conversationstore "github.com/dalemusser/melange/internal/app/store/conversations"
	conversationuserstore "github.com/dalemusser/melange/internal/app/store/conversationusers"
	"github.com/dalemusser/melange/internal/app/system/participants"
	"github.com/dalemusser/melange/internal/app/system/taskqueue"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves program conversations.
type Handler struct {
	DB           *mongo.Database
	Log          *zap.Logger
	ErrLog       *uierrors.ErrorLogger
	Participants *participants.Service
	Tasks        taskqueue.Enqueuer
	// BaseURL prefixes conversation links in notification mail.
	BaseURL string
}

func NewHandler(
	db *mongo.Database,
	errLog *uierrors.ErrorLogger,
	parts *participants.Service,
	tasks taskqueue.Enqueuer,
	baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		DB:           db,
		Log:          logger,
		ErrLog:       errLog,
		Participants: parts,
		Tasks:        tasks,
		BaseURL:      baseURL,
	}
}

// load resolves {id} for a participant. Conversations the actor is not part
// of are reported as missing.
func (h *Handler) load(ctx context.Context, r *http.Request) (scope.Scope, models.Conversation, models.ConversationUser, error) {
	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		return scope.Scope{}, models.Conversation{}, models.ConversationUser{}, err
	}
	id, err := request.ID(r, "id", "Conversation")
	if err != nil {
		return scope.Scope{}, models.Conversation{}, models.ConversationUser{}, err
	}
	conv, err := conversationstore.New(h.DB).GetByID(ctx, id)
	if errors.Is(err, conversationstore.ErrNotFound) || (err == nil && conv.ProgramID != sc.Program.ID) {
		return scope.Scope{}, models.Conversation{}, models.ConversationUser{}, uierrors.NotFound("Conversation not found.")
	}
	if err != nil {
		return scope.Scope{}, models.Conversation{}, models.ConversationUser{}, err
	}
	cu, err := conversationuserstore.New(h.DB).Get(ctx, conv.ID, sc.Actor.UserID)
	if errors.Is(err, conversationuserstore.ErrNotFound) {
		return scope.Scope{}, models.Conversation{}, models.ConversationUser{}, uierrors.NotFound("Conversation not found.")
	}
	if err != nil {
		return scope.Scope{}, models.Conversation{}, models.ConversationUser{}, err
	}
	return sc, conv, cu, nil
}
