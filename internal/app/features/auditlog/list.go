// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	"github.com/dalemusser/melange/internal/app/store/audit"
	orgstore "github.com/dalemusser/melange/internal/app/store/organizations"
	userstore "github.com/dalemusser/melange/internal/app/store/users"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ServeList handles GET /programs/{program}/audit. Site admins see the
// whole program; org admins must pass ?org and see that organization's
// events only.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	sc, err := scope.Load(ctx, h.DB, r)
	if err != nil {
		h.ErrLog.HandleError(w, r, "audit log", err)
		return
	}

	q := r.URL.Query()
	category := strings.TrimSpace(q.Get("category"))
	if !validCategory(category) {
		h.ErrLog.HandleError(w, r, "audit log", uierrors.BadRequest("Unknown category."))
		return
	}
	pageSize := h.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}

	filter := audit.QueryFilter{
		ProgramID: &sc.Program.ID,
		Category:  category,
		EventType: strings.TrimSpace(q.Get("event_type")),
		Limit:     pageSize,
		Offset:    int64(page-1) * pageSize,
	}
	if t, err := time.Parse("2006-01-02", q.Get("start_date")); err == nil {
		filter.StartTime = &t
	}
	if t, err := time.Parse("2006-01-02", q.Get("end_date")); err == nil {
		endOfDay := t.Add(24*time.Hour - time.Second)
		filter.EndTime = &endOfDay
	}

	if key := strings.TrimSpace(q.Get("org")); key != "" {
		org, err := sc.OrganizationKey(ctx, h.DB, key)
		if err != nil {
			h.ErrLog.HandleError(w, r, "audit log", err)
			return
		}
		if err := sc.RequireOrgAdmin(org); err != nil {
			h.ErrLog.HandleError(w, r, "audit log", err)
			return
		}
		filter.OrganizationID = &org.ID
	} else if err := sc.RequireAdmin(); err != nil {
		h.ErrLog.HandleError(w, r, "audit log", err)
		return
	}

	store := audit.New(h.DB)
	events, err := store.Query(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "query audit events", err, "A database error occurred.")
		return
	}
	total, err := store.CountByFilter(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count audit events", err, "A database error occurred.")
		return
	}

	userIDs := make(map[primitive.ObjectID]struct{})
	orgIDs := make(map[primitive.ObjectID]struct{})
	for _, e := range events {
		if e.ActorID != nil {
			userIDs[*e.ActorID] = struct{}{}
		}
		if e.UserID != nil {
			userIDs[*e.UserID] = struct{}{}
		}
		if e.OrganizationID != nil {
			orgIDs[*e.OrganizationID] = struct{}{}
		}
	}

	userNames := make(map[primitive.ObjectID]string)
	if len(userIDs) > 0 {
		users, err := userstore.New(h.DB).ListByIDs(ctx, keys(userIDs))
		if err != nil {
			h.Log.Warn("failed to fetch user names for audit log", zap.Error(err))
		}
		for _, u := range users {
			userNames[u.ID] = u.FullName
		}
	}
	orgNames := make(map[primitive.ObjectID]string)
	if len(orgIDs) > 0 {
		orgs, err := orgstore.New(h.DB).GetByIDs(ctx, keys(orgIDs))
		if err != nil {
			h.Log.Warn("failed to fetch org names for audit log", zap.Error(err))
		}
		for _, o := range orgs {
			orgNames[o.ID] = o.Name
		}
	}

	name := func(id *primitive.ObjectID, names map[primitive.ObjectID]string) string {
		if id == nil {
			return ""
		}
		if n, ok := names[*id]; ok {
			return n
		}
		return id.Hex()
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		items = append(items, listItem{
			ID:            e.ID.Hex(),
			Timestamp:     e.Timestamp,
			Category:      e.Category,
			EventType:     e.EventType,
			ActorName:     name(e.ActorID, userNames),
			TargetName:    name(e.UserID, userNames),
			OrgName:       name(e.OrganizationID, orgNames),
			IP:            e.IP,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		})
	}

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}
	uierrors.WriteJSON(w, http.StatusOK, listResponse{
		Items:      items,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	})
}

func keys(m map[primitive.ObjectID]struct{}) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}
