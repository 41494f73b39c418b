// internal/app/features/conversations/create.go
package conversations

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	conversationstore "github.com/dalemusser/melange/internal/app/store/conversations"
	profilestore "github.com/dalemusser/melange/internal/app/store/profiles"
	"github.com/dalemusser/melange/internal/app/system/htmlsanitize"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/app/system/txn"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createInput struct {
	Subject         string   `json:"subject" validate:"required,max=200" label:"Subject"`
	RecipientsType  string   `json:"recipients_type" validate:"required,oneof=program organization user" label:"Recipients"`
	OrganizationID  string   `json:"organization_id" validate:"objectid" label:"Organization"`
	UserIDs         []string `json:"user_ids"`
	IncludeAdmins   bool     `json:"include_admins"`
	IncludeMentors  bool     `json:"include_mentors"`
	IncludeStudents bool     `json:"include_students"`
	IncludeWinners  bool     `json:"include_winners"`
	AutoUpdateUsers bool     `json:"auto_update_users"`
	Message         string   `json:"message" validate:"required,max=20000" label:"Message"`
}

// HandleCreate handles POST /programs/{program}/conversations. Who may
// address whom:
//   - user: any active profile, listing users with a profile in the program;
//   - organization: mentors and admins of an accepted organization;
//   - program: site admins; org admins may address the other org admins.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind conversation", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "create conversation", err)
		return
	}
	if !sc.Actor.IsAdmin {
		if _, err := sc.RequireProfile(); err != nil {
			h.ErrLog.HandleError(w, r, "create conversation", err)
			return
		}
	}

	conv := models.Conversation{
		ProgramID:       sc.Program.ID,
		CreatorID:       sc.Actor.UserID,
		Subject:         htmlsanitize.Text(in.Subject),
		RecipientsType:  in.RecipientsType,
		IncludeAdmins:   in.IncludeAdmins,
		IncludeMentors:  in.IncludeMentors,
		IncludeStudents: in.IncludeStudents,
		IncludeWinners:  in.IncludeWinners,
		AutoUpdateUsers: in.AutoUpdateUsers,
	}
	if conv.Subject == "" {
		h.ErrLog.HandleError(w, r, "create conversation", uierrors.BadRequest("Subject is required."))
		return
	}

	var users []primitive.ObjectID
	switch in.RecipientsType {
	case models.RecipientsUser:
		users, err = h.recipients(ctx, sc.Program.ID, in.UserIDs)
		if err != nil {
			h.ErrLog.HandleError(w, r, "create conversation", err)
			return
		}
		conv.IncludeAdmins, conv.IncludeMentors, conv.IncludeStudents, conv.IncludeWinners = false, false, false, false
	case models.RecipientsOrganization:
		if in.OrganizationID == "" {
			h.ErrLog.HandleError(w, r, "create conversation", uierrors.BadRequest("Organization is required."))
			return
		}
		org, err := sc.OrganizationKey(ctx, h.DB, in.OrganizationID)
		if err != nil {
			h.ErrLog.HandleError(w, r, "create conversation", err)
			return
		}
		if org.Status != models.OrgStatusAccepted || !sc.Actor.CanMentorOrg(org.ID) {
			h.ErrLog.HandleError(w, r, "create conversation", uierrors.Forbidden("You may only message organizations you mentor for."))
			return
		}
		conv.OrganizationID = &org.ID
		conv.IncludeStudents = false
	case models.RecipientsProgram:
		orgAdminsOnly := in.IncludeAdmins && !in.IncludeMentors && !in.IncludeStudents && !in.IncludeWinners
		if !sc.Actor.IsAdmin && !(orgAdminsOnly && sc.Actor.Profile != nil && sc.Actor.Profile.IsOrgAdmin) {
			h.ErrLog.HandleError(w, r, "create conversation", uierrors.Forbidden("You may not message these program roles."))
			return
		}
	}

	first := htmlsanitize.Message(in.Message)
	if first == "" {
		h.ErrLog.HandleError(w, r, "create conversation", uierrors.BadRequest("Message is empty."))
		return
	}

	var (
		created models.Conversation
		msg     models.Message
	)
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		c, err := conversationstore.New(h.DB).Create(ctx, conv)
		if err != nil {
			return err
		}
		if _, err := h.Participants.Seed(ctx, c, users); err != nil {
			return err
		}
		m, err := h.store(ctx, sc, c, first)
		if err != nil {
			return err
		}
		created, msg = c, m
		return nil
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create conversation", err, "Unable to create conversation.")
		return
	}
	h.notify(ctx, sc, created, msg)

	created, err = conversationstore.New(h.DB).GetByID(ctx, created.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "reload conversation", err, "Unable to load conversation.")
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, created)
}

// recipients parses the listed users and checks each has a profile in the
// program.
func (h *Handler) recipients(ctx context.Context, programID primitive.ObjectID, raw []string) ([]primitive.ObjectID, error) {
	ids, err := request.IDs(raw, "User")
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, uierrors.BadRequest("List at least one user.")
	}
	found, err := profilestore.New(h.DB).Find(ctx, bson.M{"program_id": programID, "user_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	have := make(map[primitive.ObjectID]bool, len(found))
	for _, p := range found {
		have[p.UserID] = true
	}
	for _, id := range ids {
		if !have[id] {
			return nil, uierrors.BadRequest("User " + id.Hex() + " has no profile in this program.")
		}
	}
	return ids, nil
}
