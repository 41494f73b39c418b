// internal/app/features/orgtasks/board.go
package orgtasks

import (
	"context"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	orgtaskstore "github.com/dalemusser/melange/internal/app/store/orgtasks"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createInput struct {
	Title       string   `json:"title" validate:"required,max=200" label:"Title"`
	Description string   `json:"description" validate:"max=20000" label:"Description"`
	MentorIDs   []string `json:"mentor_ids"`
}

type updateInput struct {
	Title       *string   `json:"title" validate:"required,max=200" label:"Title"`
	Description *string   `json:"description" validate:"max=20000" label:"Description"`
	MentorIDs   *[]string `json:"mentor_ids"`
}

type listResponse struct {
	Items []models.OrgTask `json:"items"`
}

// ServeList handles GET /programs/{program}/org_tasks/org/{org} (?status=).
// Boards of accepted organizations are open to the whole program.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "list tasks", err)
		return
	}
	org, err := sc.OrganizationParam(ctx, h.DB, r, "org")
	if err != nil {
		h.ErrLog.HandleError(w, r, "list tasks", err)
		return
	}
	if org.Status != models.OrgStatusAccepted && !sc.Actor.CanMentorOrg(org.ID) {
		h.ErrLog.HandleError(w, r, "list tasks", uierrors.NotFound("Organization not found."))
		return
	}

	status := query.Get(r, "status")
	switch status {
	case "", models.OrgTaskOpen, models.OrgTaskClaimed, models.OrgTaskNeedsReview, models.OrgTaskClosed:
	default:
		h.ErrLog.HandleError(w, r, "list tasks", uierrors.BadRequest("Unknown task status."))
		return
	}

	list, err := orgtaskstore.New(h.DB).ListByOrg(ctx, org.ID, status)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list tasks", err, "Unable to load tasks.")
		return
	}
	if list == nil {
		list = []models.OrgTask{}
	}
	uierrors.WriteJSON(w, http.StatusOK, listResponse{Items: list})
}

// HandleCreate handles POST /programs/{program}/org_tasks/org/{org} (org
// admins).
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind task", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "create task", err)
		return
	}
	org, err := sc.OrganizationParam(ctx, h.DB, r, "org")
	if err != nil {
		h.ErrLog.HandleError(w, r, "create task", err)
		return
	}
	if err := sc.RequireOrgAdmin(org); err != nil {
		h.ErrLog.HandleError(w, r, "create task", err)
		return
	}
	mentors, err := scope.Mentors(ctx, h.DB, org.ID, in.MentorIDs)
	if err != nil {
		h.ErrLog.HandleError(w, r, "create task", err)
		return
	}

	t, err := orgtaskstore.New(h.DB).Create(ctx, models.OrgTask{
		ProgramID:      sc.Program.ID,
		OrganizationID: org.ID,
		Title:          in.Title,
		Description:    strings.TrimSpace(in.Description),
		MentorIDs:      mentors,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create task", err, "Unable to create task.")
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, t)
}

// load resolves {id} within the program.
func (h *Handler) load(ctx context.Context, r *http.Request) (scope.Scope, models.OrgTask, error) {
	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		return scope.Scope{}, models.OrgTask{}, err
	}
	id, err := request.ID(r, "id", "Task")
	if err != nil {
		return scope.Scope{}, models.OrgTask{}, err
	}
	t, err := orgtaskstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		return scope.Scope{}, models.OrgTask{}, userError(err)
	}
	if t.ProgramID != sc.Program.ID {
		return scope.Scope{}, models.OrgTask{}, uierrors.NotFound("Task not found.")
	}
	return sc, t, nil
}

// ServeView handles GET /programs/{program}/org_tasks/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	_, t, err := h.load(ctx, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "view task", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, t)
}

// HandleUpdate handles PATCH /programs/{program}/org_tasks/{id} (org
// admins).
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in updateInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind task update", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sc, t, err := h.load(ctx, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "update task", err)
		return
	}
	if !sc.Actor.CanAdminOrg(t.OrganizationID) {
		h.ErrLog.HandleError(w, r, "update task", uierrors.Forbidden("Organization administrator access required."))
		return
	}

	upd := orgtaskstore.Update{Title: in.Title, Description: in.Description}
	if in.MentorIDs != nil {
		var mentors []primitive.ObjectID
		if mentors, err = scope.Mentors(ctx, h.DB, t.OrganizationID, *in.MentorIDs); err != nil {
			h.ErrLog.HandleError(w, r, "update task", err)
			return
		}
		upd.MentorIDs = mentors
	}

	store := orgtaskstore.New(h.DB)
	if err := store.Update(ctx, t.ID, upd); err != nil {
		h.ErrLog.HandleError(w, r, "update task", userError(err))
		return
	}
	updated, err := store.GetByID(ctx, t.ID)
	if err != nil {
		h.ErrLog.HandleError(w, r, "reload task", userError(err))
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, updated)
}
