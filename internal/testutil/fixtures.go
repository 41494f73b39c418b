package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/melange/internal/domain/roles"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Calling it again on the same request adds to the existing params.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert test %s: %v", coll, err)
	}
}

// CreateUser creates an active password user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, loginID, role string) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		LoginID:    loginID,
		LoginIDCI:  text.Fold(loginID),
		Email:      loginID,
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		AuthMethod: models.AuthMethodPassword,
		Role:       role,
		Status:     models.UserStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateAdmin creates a site admin.
func (f *Fixtures) CreateAdmin(ctx context.Context, fullName, loginID string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, loginID, models.UserRoleAdmin)
}

// CreateProgram creates a visible GSoC program.
func (f *Fixtures) CreateProgram(ctx context.Context, slug string) models.Program {
	f.t.Helper()
	now := time.Now().UTC()
	p := models.Program{
		ID:        primitive.NewObjectID(),
		Slug:      slug,
		Name:      strings.ToUpper(slug),
		Kind:      models.ProgramKindGSoC,
		Status:    models.ProgramVisible,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "programs", p)
	return p
}

// CreateOrganization creates an organization in the program.
func (f *Fixtures) CreateOrganization(ctx context.Context, programID primitive.ObjectID, name, status string) models.Organization {
	f.t.Helper()
	now := time.Now().UTC()
	o := models.Organization{
		ID:           primitive.NewObjectID(),
		ProgramID:    programID,
		OrgID:        strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		Name:         name,
		NameCI:       text.Fold(name),
		ContactEmail: "contact@" + strings.ToLower(strings.ReplaceAll(name, " ", "")) + ".org",
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "organizations", o)
	return o
}

// CreateProfile creates a plain (non-student) profile for user in program.
// mentorFor/orgAdminFor seed the denormalized role lists.
func (f *Fixtures) CreateProfile(ctx context.Context, user models.User, programID primitive.ObjectID, mentorFor, orgAdminFor []primitive.ObjectID) models.Profile {
	f.t.Helper()
	now := time.Now().UTC()
	if mentorFor == nil {
		mentorFor = []primitive.ObjectID{}
	}
	if orgAdminFor == nil {
		orgAdminFor = []primitive.ObjectID{}
	}
	p := models.Profile{
		ID:          primitive.NewObjectID(),
		UserID:      user.ID,
		ProgramID:   programID,
		LinkID:      user.LoginID,
		PublicName:  user.FullName,
		Email:       user.Email,
		Status:      models.ProfileStatusActive,
		MentorFor:   mentorFor,
		OrgAdminFor: orgAdminFor,
		IsMentor:    len(mentorFor) > 0,
		IsOrgAdmin:  len(orgAdminFor) > 0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, "profiles", p)
	return p
}

// CreateStudentProfile creates a student profile. winnerFor marks the
// student as a winner for those organizations.
func (f *Fixtures) CreateStudentProfile(ctx context.Context, user models.User, programID primitive.ObjectID, winnerFor ...primitive.ObjectID) models.Profile {
	f.t.Helper()
	now := time.Now().UTC()
	if winnerFor == nil {
		winnerFor = []primitive.ObjectID{}
	}
	p := models.Profile{
		ID:          primitive.NewObjectID(),
		UserID:      user.ID,
		ProgramID:   programID,
		LinkID:      user.LoginID,
		PublicName:  user.FullName,
		Email:       user.Email,
		Status:      models.ProfileStatusActive,
		MentorFor:   []primitive.ObjectID{},
		OrgAdminFor: []primitive.ObjectID{},
		IsStudent:   true,
		Student: &models.StudentData{
			IsWinner:         len(winnerFor) > 0,
			WinnerFor:        winnerFor,
			NumberOfProjects: len(winnerFor),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "profiles", p)
	return p
}

// CreateConnection stores a connection with the given roles. The profile's
// role lists are not touched.
func (f *Fixtures) CreateConnection(ctx context.Context, profile models.Profile, org models.Organization, userRole, orgRole string) models.Connection {
	f.t.Helper()
	now := time.Now().UTC()
	c := models.Connection{
		ID:             primitive.NewObjectID(),
		ProfileID:      profile.ID,
		UserID:         profile.UserID,
		ProgramID:      profile.ProgramID,
		OrganizationID: org.ID,
		UserRole:       userRole,
		OrgRole:        orgRole,
		SeenByUser:     true,
		SeenByOrg:      true,
		CreatedOn:      now,
		LastModified:   now,
	}
	f.insert(ctx, "connections", c)
	return c
}

// CreateConnectedProfile creates a user and profile already connected to
// org with the given org role. Role lists match the effective role.
func (f *Fixtures) CreateConnectedProfile(ctx context.Context, name string, org models.Organization, orgRole string) (models.User, models.Profile) {
	f.t.Helper()
	u := f.CreateUser(ctx, name, strings.ToLower(strings.ReplaceAll(name, " ", "."))+"@example.com", models.UserRoleUser)
	var mentorFor, adminFor []primitive.ObjectID
	switch roles.Effective(roles.Role, orgRole) {
	case roles.Mentor:
		mentorFor = []primitive.ObjectID{org.ID}
	case roles.OrgAdmin:
		mentorFor = []primitive.ObjectID{org.ID}
		adminFor = []primitive.ObjectID{org.ID}
	}
	p := f.CreateProfile(ctx, u, org.ProgramID, mentorFor, adminFor)
	f.CreateConnection(ctx, p, org, roles.Role, orgRole)
	return u, p
}

// CreateProposal creates a proposal by student to org.
func (f *Fixtures) CreateProposal(ctx context.Context, student models.Profile, org models.Organization, status string, acceptAsProject bool, mentorIDs ...primitive.ObjectID) models.Proposal {
	f.t.Helper()
	now := time.Now().UTC()
	if mentorIDs == nil {
		mentorIDs = []primitive.ObjectID{}
	}
	p := models.Proposal{
		ID:                primitive.NewObjectID(),
		ProgramID:         org.ProgramID,
		OrganizationID:    org.ID,
		StudentProfileID:  student.ID,
		Title:             "Proposal for " + org.Name,
		Abstract:          "Abstract",
		Status:            status,
		AcceptAsProject:   acceptAsProject,
		MentorIDs:         mentorIDs,
		PossibleMentorIDs: []primitive.ObjectID{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	f.insert(ctx, "proposals", p)
	return p
}

// CreateProject creates a project for student in org.
func (f *Fixtures) CreateProject(ctx context.Context, student models.Profile, org models.Organization, mentorIDs ...primitive.ObjectID) models.Project {
	f.t.Helper()
	now := time.Now().UTC()
	if mentorIDs == nil {
		mentorIDs = []primitive.ObjectID{}
	}
	p := models.Project{
		ID:               primitive.NewObjectID(),
		ProgramID:        org.ProgramID,
		OrganizationID:   org.ID,
		StudentProfileID: student.ID,
		ProposalID:       primitive.NewObjectID(),
		Title:            "Project for " + org.Name,
		MentorIDs:        mentorIDs,
		Status:           models.ProjectAccepted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	f.insert(ctx, "projects", p)
	return p
}

// CreateOrgTask creates a task on org's board.
func (f *Fixtures) CreateOrgTask(ctx context.Context, org models.Organization, title, status string, mentorIDs ...primitive.ObjectID) models.OrgTask {
	f.t.Helper()
	now := time.Now().UTC()
	if mentorIDs == nil {
		mentorIDs = []primitive.ObjectID{}
	}
	ot := models.OrgTask{
		ID:             primitive.NewObjectID(),
		ProgramID:      org.ProgramID,
		OrganizationID: org.ID,
		Title:          title,
		TitleCI:        text.Fold(title),
		MentorIDs:      mentorIDs,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.insert(ctx, "org_tasks", ot)
	return ot
}

// CreateConversation stores conv after filling in ID and timestamps.
func (f *Fixtures) CreateConversation(ctx context.Context, conv models.Conversation) models.Conversation {
	f.t.Helper()
	now := time.Now().UTC()
	if conv.ID.IsZero() {
		conv.ID = primitive.NewObjectID()
	}
	conv.CreatedAt = now
	conv.LastMessageOn = now
	f.insert(ctx, "conversations", conv)
	return conv
}
