package rolepolicy_test

import (
	"testing"

	"github.com/dalemusser/melange/internal/app/policy/rolepolicy"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/melange/internal/domain/roles"
	"github.com/dalemusser/melange/internal/testutil"
)

func TestCanResignAsOrgAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	prog := fixtures.CreateProgram(ctx, "gsoc")
	org := fixtures.CreateOrganization(ctx, prog.ID, "Org", models.OrgStatusAccepted)
	_, admin := fixtures.CreateConnectedProfile(ctx, "First Admin", org, roles.OrgAdminRole)

	ok, err := rolepolicy.CanResignAsOrgAdmin(ctx, db, admin, org.ID)
	if err != nil {
		t.Fatalf("CanResignAsOrgAdmin failed: %v", err)
	}
	if ok {
		t.Error("sole org admin should not be able to resign")
	}

	fixtures.CreateConnectedProfile(ctx, "Second Admin", org, roles.OrgAdminRole)
	ok, err = rolepolicy.CanResignAsOrgAdmin(ctx, db, admin, org.ID)
	if err != nil {
		t.Fatalf("CanResignAsOrgAdmin failed: %v", err)
	}
	if !ok {
		t.Error("org admin with a second admin should be able to resign")
	}
}

func TestCanResignAsMentor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	prog := fixtures.CreateProgram(ctx, "gsoc")
	org := fixtures.CreateOrganization(ctx, prog.ID, "Org", models.OrgStatusAccepted)
	other := fixtures.CreateOrganization(ctx, prog.ID, "Other", models.OrgStatusAccepted)
	su := fixtures.CreateUser(ctx, "Student", "student@example.com", models.UserRoleUser)
	student := fixtures.CreateStudentProfile(ctx, su, prog.ID)

	tests := []struct {
		name  string
		setup func(mentor models.Profile)
		want  bool
	}{
		{"idle mentor", func(models.Profile) {}, true},
		{"mentors proposal", func(m models.Profile) {
			fixtures.CreateProposal(ctx, student, org, models.ProposalPending, false, m.ID)
		}, false},
		{"mentors project", func(m models.Profile) {
			fixtures.CreateProject(ctx, student, org, m.ID)
		}, false},
		{"mentors open task", func(m models.Profile) {
			fixtures.CreateOrgTask(ctx, org, "Task", models.OrgTaskClaimed, m.ID)
		}, false},
		{"mentors closed task", func(m models.Profile) {
			fixtures.CreateOrgTask(ctx, org, "Task", models.OrgTaskClosed, m.ID)
		}, true},
		{"mentors in another org", func(m models.Profile) {
			fixtures.CreateProject(ctx, student, other, m.ID)
		}, true},
	}

	for i, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, mentor := fixtures.CreateConnectedProfile(ctx, "Mentor "+string(rune('A'+i)), org, roles.MentorRole)
			tc.setup(mentor)

			got, err := rolepolicy.CanResignAsMentor(ctx, db, mentor, org.ID)
			if err != nil {
				t.Fatalf("CanResignAsMentor failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanResignAsMentor_OrgAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	prog := fixtures.CreateProgram(ctx, "gsoc")
	org := fixtures.CreateOrganization(ctx, prog.ID, "Org", models.OrgStatusAccepted)
	_, admin := fixtures.CreateConnectedProfile(ctx, "Admin", org, roles.OrgAdminRole)

	ok, err := rolepolicy.CanResignAsMentor(ctx, db, admin, org.ID)
	if err != nil {
		t.Fatalf("CanResignAsMentor failed: %v", err)
	}
	if ok {
		t.Error("org admin should not be able to resign only as mentor")
	}
}

func TestEligibilityForOrg(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	prog := fixtures.CreateProgram(ctx, "gsoc")
	org := fixtures.CreateOrganization(ctx, prog.ID, "Org", models.OrgStatusAccepted)
	_, admin := fixtures.CreateConnectedProfile(ctx, "Admin", org, roles.OrgAdminRole)
	_, mentor := fixtures.CreateConnectedProfile(ctx, "Mentor", org, roles.MentorRole)
	_, plain := fixtures.CreateConnectedProfile(ctx, "Plain", org, roles.NoRole)

	check := func(name string, fn func() (bool, error), want bool) {
		t.Helper()
		got, err := fn()
		if err != nil {
			t.Fatalf("%s failed: %v", name, err)
		}
		if got != want {
			t.Errorf("%s: got %v, want %v", name, got, want)
		}
	}

	check("sole admin no role", func() (bool, error) {
		return rolepolicy.IsNoRoleEligibleForOrg(ctx, db, admin, org.ID)
	}, false)
	check("sole admin mentor role", func() (bool, error) {
		return rolepolicy.IsMentorRoleEligibleForOrg(ctx, db, admin, org.ID)
	}, false)
	check("idle mentor no role", func() (bool, error) {
		return rolepolicy.IsNoRoleEligibleForOrg(ctx, db, mentor, org.ID)
	}, true)
	check("mentor keeps mentor role", func() (bool, error) {
		return rolepolicy.IsMentorRoleEligibleForOrg(ctx, db, mentor, org.ID)
	}, true)
	check("no role holder", func() (bool, error) {
		return rolepolicy.IsNoRoleEligibleForOrg(ctx, db, plain, org.ID)
	}, true)
}

func TestNoRoleEligibility_OrgAdminWithMentorWork(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	prog := fixtures.CreateProgram(ctx, "gsoc")
	org := fixtures.CreateOrganization(ctx, prog.ID, "Org", models.OrgStatusAccepted)
	_, busy := fixtures.CreateConnectedProfile(ctx, "Busy Admin", org, roles.OrgAdminRole)
	_, idle := fixtures.CreateConnectedProfile(ctx, "Idle Admin", org, roles.OrgAdminRole)
	su := fixtures.CreateUser(ctx, "Student", "student@example.com", models.UserRoleUser)
	student := fixtures.CreateStudentProfile(ctx, su, prog.ID)
	fixtures.CreateProject(ctx, student, org, busy.ID)

	ok, err := rolepolicy.IsNoRoleEligibleForOrg(ctx, db, busy, org.ID)
	if err != nil {
		t.Fatalf("IsNoRoleEligibleForOrg failed: %v", err)
	}
	if ok {
		t.Error("org admin mentoring a project must not drop every role")
	}

	ok, err = rolepolicy.IsNoRoleEligibleForOrg(ctx, db, idle, org.ID)
	if err != nil {
		t.Fatalf("IsNoRoleEligibleForOrg failed: %v", err)
	}
	if !ok {
		t.Error("idle org admin with another admin present should be eligible")
	}

	// stepping down to mentor keeps the mentor work covered
	ok, err = rolepolicy.IsMentorRoleEligibleForOrg(ctx, db, busy, org.ID)
	if err != nil {
		t.Fatalf("IsMentorRoleEligibleForOrg failed: %v", err)
	}
	if !ok {
		t.Error("busy org admin should still be able to step down to mentor")
	}
}
