package organizations_test

import (
	"net/http"
	"net/url"
	"testing"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/organizations"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	"github.com/dalemusser/melange/internal/app/system/negotiation"
	"github.com/dalemusser/melange/internal/app/system/paging"
	"github.com/dalemusser/melange/internal/app/system/taskqueue"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/melange/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type env struct {
	h       *organizations.Handler
	fx      *testutil.Fixtures
	tasks   *taskqueue.Recorder
	program models.Program
}

func setup(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDBWithIndexes(t)
	logger := zap.NewNop()
	tasks := &taskqueue.Recorder{}
	neg := negotiation.New(db, logger, tasks, nil, nil, nil, negotiation.Config{BaseURL: "https://melange.test"})
	e := &env{
		h:     organizations.NewHandler(db, uierrors.NewErrorLogger(logger), nil, neg, tasks, logger),
		fx:    testutil.NewFixtures(t, db),
		tasks: tasks,
	}
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.program = e.fx.CreateProgram(ctx, "gsoc")
	return e
}

func (e *env) req(method, target string, body any, user testutil.TestUser, params ...string) *http.Request {
	var r *http.Request
	if body != nil {
		r = testutil.NewJSONRequest(method, target, body)
	} else {
		r = testutil.NewRequest(method, target)
	}
	r = testutil.WithChiURLParam(r, scope.ProgramParam, e.program.Slug)
	for i := 0; i+1 < len(params); i += 2 {
		r = testutil.WithChiURLParam(r, params[i], params[i+1])
	}
	return testutil.WithUser(r, user)
}

func TestHandleApply(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateUser(ctx, "Founder", "founder@example.com", models.UserRoleUser)
	e.fx.CreateProfile(ctx, u, e.program.ID, nil, nil)

	body := map[string]string{"name": "Melange Org", "contact_email": "team@melange.org"}
	rec := testutil.NewRecorder()
	e.h.HandleApply(rec, e.req(http.MethodPost, "/", body, testutil.AsTestUser(u)))
	rec.AssertStatus(t, http.StatusCreated)

	var got struct {
		Organization models.Organization `json:"organization"`
		Connection   models.Connection   `json:"connection"`
	}
	rec.DecodeJSON(t, &got)
	assert.Equal(t, models.OrgStatusApplying, got.Organization.Status)
	assert.Equal(t, "melange-org", got.Organization.OrgID)

	// The founder now administers the applying organization.
	rec = testutil.NewRecorder()
	e.h.ServeView(rec, e.req(http.MethodGet, "/", nil, testutil.AsTestUser(u), "org", got.Organization.OrgID))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"can_admin":true`)

	rec = testutil.NewRecorder()
	e.h.HandleApply(rec, e.req(http.MethodPost, "/", body, testutil.AsTestUser(u)))
	rec.AssertStatus(t, http.StatusConflict)
}

func TestHandleApply_RequiresNonStudentProfile(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	body := map[string]string{"name": "Org", "contact_email": "a@b.org"}

	noProfile := e.fx.CreateUser(ctx, "Nobody", "nobody@example.com", models.UserRoleUser)
	rec := testutil.NewRecorder()
	e.h.HandleApply(rec, e.req(http.MethodPost, "/", body, testutil.AsTestUser(noProfile)))
	rec.AssertStatus(t, http.StatusForbidden)

	student := e.fx.CreateUser(ctx, "Stu", "stu@example.com", models.UserRoleUser)
	e.fx.CreateStudentProfile(ctx, student, e.program.ID)
	rec = testutil.NewRecorder()
	e.h.HandleApply(rec, e.req(http.MethodPost, "/", body, testutil.AsTestUser(student)))
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestServeList_UsersSeeAcceptedOnly(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.fx.CreateOrganization(ctx, e.program.ID, "Alpha", models.OrgStatusAccepted)
	e.fx.CreateOrganization(ctx, e.program.ID, "Beta", models.OrgStatusApplying)
	e.fx.CreateOrganization(ctx, e.program.ID, "Gamma", models.OrgStatusAccepted)

	var page paging.Page[models.Organization]
	rec := testutil.NewRecorder()
	e.h.ServeList(rec, e.req(http.MethodGet, "/?status=applying", nil, testutil.RegularUser()))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &page)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Alpha", page.Items[0].Name)

	rec = testutil.NewRecorder()
	e.h.ServeList(rec, e.req(http.MethodGet, "/?status=applying", nil, testutil.AdminUser()))
	rec.DecodeJSON(t, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Beta", page.Items[0].Name)

	// Keyset paging across the accepted organizations.
	rec = testutil.NewRecorder()
	e.h.ServeList(rec, e.req(http.MethodGet, "/?limit=1", nil, testutil.RegularUser()))
	rec.DecodeJSON(t, &page)
	require.Len(t, page.Items, 1)
	require.NotEmpty(t, page.Next)

	rec = testutil.NewRecorder()
	e.h.ServeList(rec, e.req(http.MethodGet, "/?limit=1&after="+url.QueryEscape(page.Next), nil, testutil.RegularUser()))
	rec.DecodeJSON(t, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Gamma", page.Items[0].Name)
}

func TestServeView_HidesUnacceptedFromOutsiders(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := e.fx.CreateOrganization(ctx, e.program.ID, "Hidden", models.OrgStatusApplying)

	rec := testutil.NewRecorder()
	e.h.ServeView(rec, e.req(http.MethodGet, "/", nil, testutil.RegularUser(), "org", org.ID.Hex()))
	rec.AssertStatus(t, http.StatusNotFound)

	rec = testutil.NewRecorder()
	e.h.ServeView(rec, e.req(http.MethodGet, "/", nil, testutil.AdminUser(), "org", org.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)
}

func TestHandleDecideAndApplyDecisions(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := e.fx.CreateOrganization(ctx, e.program.ID, "Candidate", models.OrgStatusApplying)

	rec := testutil.NewRecorder()
	e.h.HandleDecide(rec, e.req(http.MethodPost, "/", map[string]string{"status": "pre_accepted"}, testutil.RegularUser(), "org", org.ID.Hex()))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	e.h.HandleDecide(rec, e.req(http.MethodPost, "/", map[string]string{"status": "accepted"}, testutil.AdminUser(), "org", org.ID.Hex()))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = testutil.NewRecorder()
	e.h.HandleDecide(rec, e.req(http.MethodPost, "/", map[string]string{"status": "pre_accepted"}, testutil.AdminUser(), "org", org.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)
	var got models.Organization
	rec.DecodeJSON(t, &got)
	assert.Equal(t, models.OrgStatusPreAccepted, got.Status)

	rec = testutil.NewRecorder()
	e.h.HandleApplyDecisions(rec, e.req(http.MethodPost, "/", nil, testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusAccepted)
	queued := e.tasks.Named(taskqueue.ApplyDecisions.Name)
	require.Len(t, queued, 1)
	assert.Equal(t, e.program.ID.Hex(), queued[0].Params["program_key"])
}

func TestHandleEdit(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := e.fx.CreateOrganization(ctx, e.program.ID, "Editable", models.OrgStatusAccepted)
	admin, _ := e.fx.CreateConnectedProfile(ctx, "Org Admin", org, "org_admin")

	rec := testutil.NewRecorder()
	e.h.HandleEdit(rec, e.req(http.MethodPatch, "/", map[string]any{"description": "We build things."}, testutil.AsTestUser(admin), "org", org.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "We build things.")

	rec = testutil.NewRecorder()
	e.h.HandleEdit(rec, e.req(http.MethodPatch, "/", map[string]any{"slot_allocation": 3}, testutil.AsTestUser(admin), "org", org.ID.Hex()))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	e.h.HandleEdit(rec, e.req(http.MethodPatch, "/", map[string]any{"slot_allocation": 3}, testutil.AdminUser(), "org", org.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)
}
