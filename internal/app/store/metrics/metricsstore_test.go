package metricsstore_test

import (
	"testing"

	metricsstore "github.com/dalemusser/melange/internal/app/store/metrics"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/melange/internal/domain/roles"
	"github.com/dalemusser/melange/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFetchProgramCounts_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	counts := metricsstore.FetchProgramCounts(ctx, db, primitive.NewObjectID())

	if len(counts.Organizations) != 0 {
		t.Errorf("Organizations: got %v, want empty", counts.Organizations)
	}
	if counts.Profiles != 0 || counts.Projects != 0 || counts.Conversations != 0 {
		t.Errorf("expected zero counts, got %+v", counts)
	}
}

func TestFetchProgramCounts_WithData(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	prog := fixtures.CreateProgram(ctx, "gsoc")
	other := fixtures.CreateProgram(ctx, "gci")

	accepted := fixtures.CreateOrganization(ctx, prog.ID, "Org One", models.OrgStatusAccepted)
	fixtures.CreateOrganization(ctx, prog.ID, "Org Two", models.OrgStatusAccepted)
	fixtures.CreateOrganization(ctx, prog.ID, "Org Three", models.OrgStatusRejected)
	fixtures.CreateOrganization(ctx, other.ID, "Elsewhere", models.OrgStatusAccepted)

	fixtures.CreateConnectedProfile(ctx, "Admin One", accepted, roles.OrgAdminRole)
	fixtures.CreateConnectedProfile(ctx, "Mentor One", accepted, roles.MentorRole)

	su := fixtures.CreateUser(ctx, "Student", "student@example.com", models.UserRoleUser)
	student := fixtures.CreateStudentProfile(ctx, su, prog.ID, accepted.ID)
	fixtures.CreateProposal(ctx, student, accepted, models.ProposalAccepted, true)
	fixtures.CreateProposal(ctx, student, accepted, models.ProposalPending, false)
	fixtures.CreateProject(ctx, student, accepted)

	counts := metricsstore.FetchProgramCounts(ctx, db, prog.ID)

	if counts.Organizations[models.OrgStatusAccepted] != 2 || counts.Organizations[models.OrgStatusRejected] != 1 {
		t.Errorf("Organizations: got %v", counts.Organizations)
	}
	if counts.Profiles != 3 {
		t.Errorf("Profiles: got %d, want 3", counts.Profiles)
	}
	if counts.Mentors != 2 || counts.OrgAdmins != 1 {
		t.Errorf("Mentors/OrgAdmins: got %d/%d, want 2/1", counts.Mentors, counts.OrgAdmins)
	}
	if counts.Students != 1 || counts.Winners != 1 {
		t.Errorf("Students/Winners: got %d/%d, want 1/1", counts.Students, counts.Winners)
	}
	if counts.Proposals[models.ProposalAccepted] != 1 || counts.Proposals[models.ProposalPending] != 1 {
		t.Errorf("Proposals: got %v", counts.Proposals)
	}
	if counts.Projects != 1 {
		t.Errorf("Projects: got %d, want 1", counts.Projects)
	}
}
