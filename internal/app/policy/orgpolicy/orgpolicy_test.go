package orgpolicy_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/melange/internal/app/policy/orgpolicy"
	"github.com/dalemusser/melange/internal/app/system/auth"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/melange/internal/domain/roles"
	"github.com/dalemusser/melange/internal/testutil"
)

func TestLoad(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	prog := fixtures.CreateProgram(ctx, "gsoc")
	org := fixtures.CreateOrganization(ctx, prog.ID, "Org", models.OrgStatusAccepted)
	user, profile := fixtures.CreateConnectedProfile(ctx, "Mentor", org, roles.MentorRole)

	t.Run("anonymous", func(t *testing.T) {
		_, ok, err := orgpolicy.Load(ctx, db, httptest.NewRequest("GET", "/", nil), prog.ID)
		if err != nil || ok {
			t.Fatalf("expected no actor, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("with profile", func(t *testing.T) {
		req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.SessionUser{
			ID: user.ID.Hex(), Name: user.FullName, Role: models.UserRoleUser,
		})
		a, ok, err := orgpolicy.Load(ctx, db, req, prog.ID)
		if err != nil || !ok {
			t.Fatalf("Load: ok=%v err=%v", ok, err)
		}
		if a.Profile == nil || a.Profile.ID != profile.ID {
			t.Fatalf("expected profile %v, got %+v", profile.ID, a.Profile)
		}
		if !a.CanMentorOrg(org.ID) {
			t.Error("mentor should be able to mentor org")
		}
		if a.CanAdminOrg(org.ID) {
			t.Error("mentor should not be able to admin org")
		}
	})

	t.Run("site admin without profile", func(t *testing.T) {
		admin := fixtures.CreateAdmin(ctx, "Host", "host@example.com")
		req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.SessionUser{
			ID: admin.ID.Hex(), Role: models.UserRoleAdmin,
		})
		a, ok, err := orgpolicy.Load(ctx, db, req, prog.ID)
		if err != nil || !ok {
			t.Fatalf("Load: ok=%v err=%v", ok, err)
		}
		if a.Profile != nil {
			t.Error("expected nil profile")
		}
		if !a.CanAdminOrg(org.ID) || !a.CanMentorOrg(org.ID) {
			t.Error("site admin should act for every org")
		}
		if a.IsStudent() {
			t.Error("site admin is not a student")
		}
	})
}
