// internal/app/features/programs/programs.go
package programs

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	programstore "github.com/dalemusser/melange/internal/app/store/programs"
	"github.com/dalemusser/melange/internal/app/system/authz"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.uber.org/zap"
)

type createInput struct {
	Slug              string                  `json:"slug" validate:"max=64" label:"Slug"`
	Name              string                  `json:"name" validate:"required,max=200" label:"Name"`
	Kind              string                  `json:"kind" validate:"oneof=gsoc gci" label:"Kind"`
	Status            string                  `json:"status" validate:"oneof=visible invisible" label:"Status"`
	Messages          *models.ProgramMessages `json:"messages"`
	DuplicatesVisible bool                    `json:"duplicates_visible"`
}

type updateInput struct {
	Name              *string                 `json:"name" validate:"max=200" label:"Name"`
	Status            *string                 `json:"status" validate:"oneof=visible invisible" label:"Status"`
	Messages          *models.ProgramMessages `json:"messages"`
	DuplicatesVisible *bool                   `json:"duplicates_visible"`
}

// ServeList handles GET /programs. Admins also see invisible programs.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := programstore.New(h.DB).List(ctx, authz.IsAdmin(r))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list programs", err, "Unable to load programs.")
		return
	}
	if list == nil {
		list = []models.Program{}
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]any{"items": list})
}

// HandleCreate handles POST /programs (admin).
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := request.User(r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "create program", err)
		return
	}
	if err := request.RequireAdmin(r); err != nil {
		h.ErrLog.HandleError(w, r, "create program", err)
		return
	}
	var in createInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind program", err)
		return
	}

	p := models.Program{
		Slug:              in.Slug,
		Name:              in.Name,
		Kind:              in.Kind,
		Status:            in.Status,
		DuplicatesVisible: in.DuplicatesVisible,
	}
	if in.Messages != nil {
		p.Messages = *in.Messages
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	created, err := programstore.New(h.DB).Create(ctx, p)
	if errors.Is(err, programstore.ErrDuplicateSlug) {
		h.ErrLog.HandleError(w, r, "create program", uierrors.Conflict("A program with this slug already exists."))
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create program", err, "Failed to create program.")
		return
	}

	h.AuditLog.ProgramCreated(ctx, r, actorID, created.ID, created.Slug)
	h.Log.Info("program created", zap.String("slug", created.Slug))
	uierrors.WriteJSON(w, http.StatusCreated, created)
}

// ServeView handles GET /programs/{program}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := scope.Program(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "view program", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, p)
}

// HandleUpdate handles PATCH /programs/{program} (admin). Message templates
// are replaced as a whole.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := request.User(r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "update program", err)
		return
	}
	if err := request.RequireAdmin(r); err != nil {
		h.ErrLog.HandleError(w, r, "update program", err)
		return
	}
	var in updateInput
	if err := request.Bind(w, r, &in); err != nil {
		h.ErrLog.HandleError(w, r, "bind program update", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := scope.Program(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "update program", err)
		return
	}

	store := programstore.New(h.DB)
	fields, err := store.Update(ctx, p.ID, programstore.Update{
		Name:              in.Name,
		Status:            in.Status,
		Messages:          in.Messages,
		DuplicatesVisible: in.DuplicatesVisible,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update program", err, "Failed to update program.")
		return
	}
	if len(fields) > 0 {
		h.AuditLog.ProgramUpdated(ctx, r, actorID, p.ID, strings.Join(fields, ","))
	}

	updated, err := store.GetByID(ctx, p.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "reload program", err, "Failed to load program.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, updated)
}
