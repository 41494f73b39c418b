package orgtasks_test

import (
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/orgtasks"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/melange/internal/domain/roles"
	"github.com/dalemusser/melange/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type env struct {
	h       *orgtasks.Handler
	fx      *testutil.Fixtures
	program models.Program
	org     models.Organization
}

func setup(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	e := &env{
		h:  orgtasks.NewHandler(db, uierrors.NewErrorLogger(logger), logger),
		fx: testutil.NewFixtures(t, db),
	}
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.program = e.fx.CreateProgram(ctx, "gci")
	e.org = e.fx.CreateOrganization(ctx, e.program.ID, "Melange", models.OrgStatusAccepted)
	return e
}

func (e *env) req(method string, body any, user testutil.TestUser, params ...string) *http.Request {
	var r *http.Request
	if body != nil {
		r = testutil.NewJSONRequest(method, "/", body)
	} else {
		r = testutil.NewRequest(method, "/")
	}
	r = testutil.WithChiURLParam(r, scope.ProgramParam, e.program.Slug)
	for i := 0; i+1 < len(params); i += 2 {
		r = testutil.WithChiURLParam(r, params[i], params[i+1])
	}
	return testutil.WithUser(r, user)
}

func TestCreateAndList(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	admin, _ := e.fx.CreateConnectedProfile(ctx, "Org Admin", e.org, roles.OrgAdminRole)
	mentor, mp := e.fx.CreateConnectedProfile(ctx, "Mentor", e.org, roles.MentorRole)

	body := map[string]any{"title": "Fix the docs", "description": "Typos.", "mentor_ids": []string{mp.ID.Hex()}}
	rec := testutil.NewRecorder()
	e.h.HandleCreate(rec, e.req(http.MethodPost, body, testutil.AsTestUser(mentor), "org", e.org.OrgID))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	e.h.HandleCreate(rec, e.req(http.MethodPost, body, testutil.AsTestUser(admin), "org", e.org.OrgID))
	rec.AssertStatus(t, http.StatusCreated)
	var task models.OrgTask
	rec.DecodeJSON(t, &task)
	assert.Equal(t, models.OrgTaskOpen, task.Status)
	assert.Equal(t, mp.ID, task.MentorIDs[0])

	e.fx.CreateOrgTask(ctx, e.org, "Add tests", models.OrgTaskClosed)

	var list struct {
		Items []models.OrgTask `json:"items"`
	}
	rec = testutil.NewRecorder()
	e.h.ServeList(rec, e.req(http.MethodGet, nil, testutil.RegularUser(), "org", e.org.OrgID))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &list)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "Add tests", list.Items[0].Title)

	rec = testutil.NewRecorder()
	r := e.req(http.MethodGet, nil, testutil.RegularUser(), "org", e.org.OrgID)
	r.URL.RawQuery = "status=open"
	e.h.ServeList(rec, r)
	rec.DecodeJSON(t, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, task.ID, list.Items[0].ID)
}

func TestLifecycle(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	mentor, mp := e.fx.CreateConnectedProfile(ctx, "Mentor", e.org, roles.MentorRole)
	other, _ := e.fx.CreateConnectedProfile(ctx, "Other Mentor", e.org, roles.MentorRole)
	su := e.fx.CreateUser(ctx, "Stu", "stu@example.com", models.UserRoleUser)
	e.fx.CreateStudentProfile(ctx, su, e.program.ID)
	su2 := e.fx.CreateUser(ctx, "Stu Two", "stu2@example.com", models.UserRoleUser)
	e.fx.CreateStudentProfile(ctx, su2, e.program.ID)
	task := e.fx.CreateOrgTask(ctx, e.org, "Port the parser", models.OrgTaskOpen, mp.ID)
	id := task.ID.Hex()

	rec := testutil.NewRecorder()
	e.h.HandleClaim(rec, e.req(http.MethodPost, nil, testutil.AsTestUser(mentor), "id", id))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	e.h.HandleClaim(rec, e.req(http.MethodPost, nil, testutil.AsTestUser(su), "id", id))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"claimed"`)

	rec = testutil.NewRecorder()
	e.h.HandleClaim(rec, e.req(http.MethodPost, nil, testutil.AsTestUser(su2), "id", id))
	rec.AssertStatus(t, http.StatusConflict)

	rec = testutil.NewRecorder()
	e.h.HandleSubmit(rec, e.req(http.MethodPost, nil, testutil.AsTestUser(su2), "id", id))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	e.h.HandleSubmit(rec, e.req(http.MethodPost, nil, testutil.AsTestUser(su), "id", id))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"needs_review"`)

	// Only the task's mentors close it.
	rec = testutil.NewRecorder()
	e.h.HandleClose(rec, e.req(http.MethodPost, nil, testutil.AsTestUser(other), "id", id))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	e.h.HandleReopen(rec, e.req(http.MethodPost, nil, testutil.AsTestUser(mentor), "id", id))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"open"`)
	assert.NotContains(t, rec.Body.String(), "student_profile_id")

	rec = testutil.NewRecorder()
	e.h.HandleClose(rec, e.req(http.MethodPost, nil, testutil.AsTestUser(mentor), "id", id))
	rec.AssertStatus(t, http.StatusConflict)
}

func TestHandleUpdate(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	admin, _ := e.fx.CreateConnectedProfile(ctx, "Org Admin", e.org, roles.OrgAdminRole)
	task := e.fx.CreateOrgTask(ctx, e.org, "Old title", models.OrgTaskOpen)

	rec := testutil.NewRecorder()
	e.h.HandleUpdate(rec, e.req(http.MethodPatch, map[string]any{"title": "New title"}, testutil.AsTestUser(admin), "id", task.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"title":"New title"`)

	rec = testutil.NewRecorder()
	e.h.HandleUpdate(rec, e.req(http.MethodPatch, map[string]any{"title": ""}, testutil.AsTestUser(admin), "id", task.ID.Hex()))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = testutil.NewRecorder()
	e.h.HandleUpdate(rec, e.req(http.MethodPatch, map[string]any{"title": "X"}, testutil.RegularUser(), "id", task.ID.Hex()))
	rec.AssertStatus(t, http.StatusForbidden)
}
