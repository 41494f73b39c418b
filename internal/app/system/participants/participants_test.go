package participants_test

import (
	"context"
	"sort"
	"testing"

	conversationuserstore "github.com/dalemusser/melange/internal/app/store/conversationusers"
	profilestore "github.com/dalemusser/melange/internal/app/store/profiles"
	"github.com/dalemusser/melange/internal/app/system/participants"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/melange/internal/domain/roles"
	"github.com/dalemusser/melange/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type world struct {
	db        *mongo.Database
	fixtures  *testutil.Fixtures
	program   models.Program
	org       models.Organization
	other     models.Organization
	creator   models.User
	admin     models.Profile
	mentor    models.Profile
	otherMent models.Profile
	student   models.Profile
	winner    models.Profile
}

func setup(t *testing.T) (*world, context.Context) {
	t.Helper()
	db := testutil.SetupTestDBWithIndexes(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)

	w := &world{db: db, fixtures: testutil.NewFixtures(t, db)}
	w.program = w.fixtures.CreateProgram(ctx, "gsoc")
	w.org = w.fixtures.CreateOrganization(ctx, w.program.ID, "Org", models.OrgStatusAccepted)
	w.other = w.fixtures.CreateOrganization(ctx, w.program.ID, "Other", models.OrgStatusAccepted)
	w.creator = w.fixtures.CreateAdmin(ctx, "Host", "host@example.com")
	_, w.admin = w.fixtures.CreateConnectedProfile(ctx, "Org Admin", w.org, roles.OrgAdminRole)
	_, w.mentor = w.fixtures.CreateConnectedProfile(ctx, "Org Mentor", w.org, roles.MentorRole)
	_, w.otherMent = w.fixtures.CreateConnectedProfile(ctx, "Other Mentor", w.other, roles.MentorRole)

	su := w.fixtures.CreateUser(ctx, "Student", "student@example.com", models.UserRoleUser)
	w.student = w.fixtures.CreateStudentProfile(ctx, su, w.program.ID)
	wu := w.fixtures.CreateUser(ctx, "Winner", "winner@example.com", models.UserRoleUser)
	w.winner = w.fixtures.CreateStudentProfile(ctx, wu, w.program.ID, w.org.ID)
	return w, ctx
}

func (w *world) members(t *testing.T, ctx context.Context, convID primitive.ObjectID) []primitive.ObjectID {
	t.Helper()
	ids, err := conversationuserstore.New(w.db).UserIDs(ctx, convID)
	if err != nil {
		t.Fatalf("UserIDs: %v", err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })
	return ids
}

func sorted(ids ...primitive.ObjectID) []primitive.ObjectID {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })
	return ids
}

func equalIDs(a, b []primitive.ObjectID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRefresh_ProgramConversation(t *testing.T) {
	w, ctx := setup(t)
	svc := participants.New(w.db, zap.NewNop(), 0)

	conv := w.fixtures.CreateConversation(ctx, models.Conversation{
		ProgramID:       w.program.ID,
		CreatorID:       w.creator.ID,
		Subject:         "Mentors and winners",
		RecipientsType:  models.RecipientsProgram,
		IncludeMentors:  true,
		IncludeWinners:  true,
		AutoUpdateUsers: true,
	})

	st, err := svc.Refresh(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	want := sorted(w.creator.ID, w.admin.UserID, w.mentor.UserID, w.otherMent.UserID, w.winner.UserID)
	if got := w.members(t, ctx, conv.ID); !equalIDs(got, want) {
		t.Errorf("members: got %v, want %v", got, want)
	}
	if st.Added != 5 || st.Removed != 0 {
		t.Errorf("stats: got %+v", st)
	}

	st, err = svc.Refresh(ctx, conv.ID)
	if err != nil {
		t.Fatalf("second Refresh failed: %v", err)
	}
	if st.Added != 0 || st.Removed != 0 {
		t.Errorf("second refresh should be a no-op, got %+v", st)
	}
}

func TestRefresh_OrganizationConversationIgnoresStudents(t *testing.T) {
	w, ctx := setup(t)
	svc := participants.New(w.db, zap.NewNop(), 0)
	orgID := w.org.ID

	conv := w.fixtures.CreateConversation(ctx, models.Conversation{
		ProgramID:       w.program.ID,
		CreatorID:       w.creator.ID,
		RecipientsType:  models.RecipientsOrganization,
		OrganizationID:  &orgID,
		IncludeAdmins:   true,
		IncludeStudents: true,
		AutoUpdateUsers: true,
	})

	if _, err := svc.Refresh(ctx, conv.ID); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	want := sorted(w.creator.ID, w.admin.UserID)
	if got := w.members(t, ctx, conv.ID); !equalIDs(got, want) {
		t.Errorf("members: got %v, want %v", got, want)
	}
}

func TestRefresh_OrganizationConversationDropsBannedProfiles(t *testing.T) {
	w, ctx := setup(t)
	svc := participants.New(w.db, zap.NewNop(), 0)
	orgID := w.org.ID

	conv := w.fixtures.CreateConversation(ctx, models.Conversation{
		ProgramID:       w.program.ID,
		CreatorID:       w.creator.ID,
		RecipientsType:  models.RecipientsOrganization,
		OrganizationID:  &orgID,
		IncludeAdmins:   true,
		IncludeMentors:  true,
		AutoUpdateUsers: true,
	})
	if _, err := svc.Refresh(ctx, conv.ID); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	want := sorted(w.creator.ID, w.admin.UserID, w.mentor.UserID)
	if got := w.members(t, ctx, conv.ID); !equalIDs(got, want) {
		t.Fatalf("members: got %v, want %v", got, want)
	}

	if err := profilestore.New(w.db).SetStatus(ctx, w.mentor.ID, models.ProfileStatusBanned); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	st, err := svc.Refresh(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if st.Removed != 1 {
		t.Errorf("Removed: got %d, want 1", st.Removed)
	}
	want = sorted(w.creator.ID, w.admin.UserID)
	if got := w.members(t, ctx, conv.ID); !equalIDs(got, want) {
		t.Errorf("members: got %v, want %v", got, want)
	}
}

func TestRefresh_RemovesStaleMembers(t *testing.T) {
	w, ctx := setup(t)
	svc := participants.New(w.db, zap.NewNop(), 0)
	conv := w.fixtures.CreateConversation(ctx, models.Conversation{
		ProgramID:       w.program.ID,
		CreatorID:       w.creator.ID,
		RecipientsType:  models.RecipientsProgram,
		IncludeAdmins:   true,
		AutoUpdateUsers: true,
	})
	cu := conversationuserstore.New(w.db)
	if _, err := cu.Ensure(ctx, conv, w.student.UserID); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	stranger := primitive.NewObjectID()
	if _, err := cu.Ensure(ctx, conv, stranger); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	st, err := svc.Refresh(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if st.Removed != 2 {
		t.Errorf("Removed: got %d, want 2", st.Removed)
	}
	want := sorted(w.creator.ID, w.admin.UserID)
	if got := w.members(t, ctx, conv.ID); !equalIDs(got, want) {
		t.Errorf("members: got %v, want %v", got, want)
	}
}

func TestRefresh_FrozenKeepsMembersAndAddsCreator(t *testing.T) {
	w, ctx := setup(t)
	svc := participants.New(w.db, zap.NewNop(), 0)
	conv := w.fixtures.CreateConversation(ctx, models.Conversation{
		ProgramID:       w.program.ID,
		CreatorID:       w.creator.ID,
		RecipientsType:  models.RecipientsProgram,
		IncludeAdmins:   true,
		AutoUpdateUsers: false,
	})
	if _, err := conversationuserstore.New(w.db).Ensure(ctx, conv, w.student.UserID); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	if _, err := svc.Refresh(ctx, conv.ID); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	want := sorted(w.creator.ID, w.student.UserID)
	if got := w.members(t, ctx, conv.ID); !equalIDs(got, want) {
		t.Errorf("members: got %v, want %v", got, want)
	}
}

func TestRefreshForUser(t *testing.T) {
	w, ctx := setup(t)
	svc := participants.New(w.db, zap.NewNop(), 0)
	orgID := w.org.ID

	mentors := w.fixtures.CreateConversation(ctx, models.Conversation{
		ProgramID: w.program.ID, CreatorID: w.creator.ID,
		RecipientsType: models.RecipientsOrganization, OrganizationID: &orgID,
		IncludeMentors: true, AutoUpdateUsers: true,
	})
	admins := w.fixtures.CreateConversation(ctx, models.Conversation{
		ProgramID: w.program.ID, CreatorID: w.creator.ID,
		RecipientsType: models.RecipientsProgram,
		IncludeAdmins: true, AutoUpdateUsers: true,
	})
	if _, err := conversationuserstore.New(w.db).Ensure(ctx, admins, w.mentor.UserID); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	st, err := svc.RefreshForUser(ctx, w.program.ID, w.mentor.UserID)
	if err != nil {
		t.Fatalf("RefreshForUser failed: %v", err)
	}
	if st.Added != 1 || st.Removed != 1 {
		t.Errorf("stats: got %+v, want 1 added 1 removed", st)
	}
	cu := conversationuserstore.New(w.db)
	if _, err := cu.Get(ctx, mentors.ID, w.mentor.UserID); err != nil {
		t.Errorf("mentor should be in mentors conversation: %v", err)
	}
	if _, err := cu.Get(ctx, admins.ID, w.mentor.UserID); err == nil {
		t.Error("mentor should have been removed from admins conversation")
	}
}

func TestRefreshProgram(t *testing.T) {
	w, ctx := setup(t)
	svc := participants.New(w.db, zap.NewNop(), 2)

	var ids []primitive.ObjectID
	for i := 0; i < 5; i++ {
		conv := w.fixtures.CreateConversation(ctx, models.Conversation{
			ProgramID: w.program.ID, CreatorID: w.creator.ID,
			RecipientsType: models.RecipientsProgram,
			IncludeStudents: true, AutoUpdateUsers: true,
		})
		ids = append(ids, conv.ID)
	}

	st, err := svc.RefreshProgram(ctx, w.program.ID)
	if err != nil {
		t.Fatalf("RefreshProgram failed: %v", err)
	}
	// creator + two students per conversation
	if st.Added != 15 {
		t.Errorf("Added: got %d, want 15", st.Added)
	}
	for _, id := range ids {
		if got := len(w.members(t, ctx, id)); got != 3 {
			t.Errorf("conversation %s: got %d members, want 3", id.Hex(), got)
		}
	}
}

func TestSubscriberEmails(t *testing.T) {
	w, ctx := setup(t)
	svc := participants.New(w.db, zap.NewNop(), 0)
	conv := w.fixtures.CreateConversation(ctx, models.Conversation{
		ProgramID: w.program.ID, CreatorID: w.creator.ID,
		RecipientsType: models.RecipientsUser, AutoUpdateUsers: true,
	})
	cu := conversationuserstore.New(w.db)
	for _, uid := range []primitive.ObjectID{w.creator.ID, w.student.UserID, w.winner.UserID} {
		if _, err := cu.Ensure(ctx, conv, uid); err != nil {
			t.Fatalf("Ensure: %v", err)
		}
	}
	if err := cu.SetNotifications(ctx, conv.ID, w.winner.UserID, false); err != nil {
		t.Fatalf("SetNotifications: %v", err)
	}

	emails, err := svc.SubscriberEmails(ctx, conv.ID, w.creator.ID)
	if err != nil {
		t.Fatalf("SubscriberEmails failed: %v", err)
	}
	if len(emails) != 1 || emails[0] != "student@example.com" {
		t.Errorf("emails: got %v, want [student@example.com]", emails)
	}
}

func TestSeed_FrozenConversationGetsInitialMembers(t *testing.T) {
	w, ctx := setup(t)
	svc := participants.New(w.db, zap.NewNop(), 0)
	orgID := w.org.ID

	conv := w.fixtures.CreateConversation(ctx, models.Conversation{
		ProgramID:      w.program.ID,
		CreatorID:      w.creator.ID,
		RecipientsType: models.RecipientsOrganization,
		OrganizationID: &orgID,
		IncludeMentors: true,
	})

	st, err := svc.Seed(ctx, conv, nil)
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	want := sorted(w.creator.ID, w.admin.UserID, w.mentor.UserID)
	if got := w.members(t, ctx, conv.ID); !equalIDs(got, want) {
		t.Errorf("members: got %v, want %v", got, want)
	}
	if st.Added != 3 {
		t.Errorf("stats: got %+v", st)
	}
}

func TestSeed_UserConversation(t *testing.T) {
	w, ctx := setup(t)
	svc := participants.New(w.db, zap.NewNop(), 0)

	conv := w.fixtures.CreateConversation(ctx, models.Conversation{
		ProgramID:      w.program.ID,
		CreatorID:      w.mentor.UserID,
		RecipientsType: models.RecipientsUser,
	})

	if _, err := svc.Seed(ctx, conv, []primitive.ObjectID{w.student.UserID, w.mentor.UserID}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	want := sorted(w.mentor.UserID, w.student.UserID)
	if got := w.members(t, ctx, conv.ID); !equalIDs(got, want) {
		t.Errorf("members: got %v, want %v", got, want)
	}
}
