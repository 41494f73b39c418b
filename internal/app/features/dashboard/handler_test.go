package dashboard_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/melange/internal/app/features/dashboard"
	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/scope"
	connectionstore "github.com/dalemusser/melange/internal/app/store/connections"
	conversationuserstore "github.com/dalemusser/melange/internal/app/store/conversationusers"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/melange/internal/domain/roles"
	"github.com/dalemusser/melange/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*dashboard.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	return dashboard.NewHandler(db, uierrors.NewErrorLogger(logger), logger), testutil.NewFixtures(t, db)
}

func TestServeDashboard_Unauthenticated(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeDashboard(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestServeDashboard_Summary(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	prog := fx.CreateProgram(ctx, "gsoc")
	org := fx.CreateOrganization(ctx, prog.ID, "Melange", models.OrgStatusAccepted)
	admin, _ := fx.CreateConnectedProfile(ctx, "Org Admin", org, roles.OrgAdminRole)
	applicant := fx.CreateUser(ctx, "Applicant", "applicant@example.com", models.UserRoleUser)
	pending := fx.CreateConnection(ctx, fx.CreateProfile(ctx, applicant, prog.ID, nil, nil), org, roles.Role, roles.NoRole)
	require.NoError(t, connectionstore.New(fx.DB()).Touch(ctx, pending.ID, true, false))

	conv := fx.CreateConversation(ctx, models.Conversation{
		ProgramID: prog.ID, CreatorID: admin.ID, Subject: "Hi", RecipientsType: models.RecipientsUser,
	})
	_, err := conversationuserstore.New(fx.DB()).Ensure(ctx, conv, admin.ID)
	require.NoError(t, err)

	rec := testutil.NewRecorder()
	h.ServeDashboard(rec, testutil.WithUser(testutil.NewRequest(http.MethodGet, "/dashboard"), testutil.AsTestUser(admin)))
	rec.AssertStatus(t, http.StatusOK)

	var out struct {
		Profiles []struct {
			ProgramSlug string `json:"program_slug"`
		} `json:"profiles"`
		UnseenOrgRequests   int64 `json:"unseen_org_requests"`
		UnreadConversations int   `json:"unread_conversations"`
	}
	rec.DecodeJSON(t, &out)
	require.Len(t, out.Profiles, 1)
	assert.Equal(t, "gsoc", out.Profiles[0].ProgramSlug)
	assert.Equal(t, 1, out.UnreadConversations)
	assert.EqualValues(t, 1, out.UnseenOrgRequests)
}

func TestServeProgram(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	prog := fx.CreateProgram(ctx, "gsoc")
	fx.CreateOrganization(ctx, prog.ID, "Accepted One", models.OrgStatusAccepted)
	fx.CreateOrganization(ctx, prog.ID, "Applying One", models.OrgStatusApplying)

	req := func(u testutil.TestUser) *http.Request {
		r := testutil.NewRequest(http.MethodGet, "/")
		r = testutil.WithChiURLParam(r, scope.ProgramParam, prog.Slug)
		return testutil.WithUser(r, u)
	}

	rec := testutil.NewRecorder()
	h.ServeProgram(rec, req(testutil.RegularUser()))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	h.ServeProgram(rec, req(testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)
	var out struct {
		Counts struct {
			Organizations map[string]int64 `json:"organizations"`
		} `json:"counts"`
	}
	rec.DecodeJSON(t, &out)
	assert.EqualValues(t, 1, out.Counts.Organizations[models.OrgStatusAccepted])
	assert.EqualValues(t, 1, out.Counts.Organizations[models.OrgStatusApplying])
}
