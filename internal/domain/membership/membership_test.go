package membership_test

import (
	"testing"

	"github.com/dalemusser/melange/internal/domain/membership"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBelongs_Program(t *testing.T) {
	creator := primitive.NewObjectID()
	user := primitive.NewObjectID()

	mentor := &models.Profile{IsMentor: true}
	admin := &models.Profile{IsMentor: true, IsOrgAdmin: true}
	student := &models.Profile{IsStudent: true, Student: &models.StudentData{}}
	winner := &models.Profile{IsStudent: true, Student: &models.StudentData{IsWinner: true}}

	tests := []struct {
		name    string
		conv    models.Conversation
		profile *models.Profile
		want    bool
	}{
		{"mentors include mentor", models.Conversation{IncludeMentors: true}, mentor, true},
		{"mentors exclude student", models.Conversation{IncludeMentors: true}, student, false},
		{"admins include admin", models.Conversation{IncludeAdmins: true}, admin, true},
		{"admins exclude plain mentor", models.Conversation{IncludeAdmins: true}, mentor, false},
		{"students include student", models.Conversation{IncludeStudents: true}, student, true},
		{"winners exclude non-winner", models.Conversation{IncludeWinners: true}, student, false},
		{"winners include winner", models.Conversation{IncludeWinners: true}, winner, true},
		{"no profile", models.Conversation{IncludeMentors: true}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.conv.RecipientsType = models.RecipientsProgram
			tt.conv.AutoUpdateUsers = true
			tt.conv.CreatorID = creator
			assert.Equal(t, tt.want, membership.Belongs(tt.conv, user, tt.profile, true))
		})
	}
}

func TestBelongs_Organization(t *testing.T) {
	org := primitive.NewObjectID()
	other := primitive.NewObjectID()
	user := primitive.NewObjectID()

	conv := models.Conversation{
		RecipientsType:  models.RecipientsOrganization,
		OrganizationID:  &org,
		AutoUpdateUsers: true,
		CreatorID:       primitive.NewObjectID(),
		IncludeMentors:  true,
		IncludeStudents: true,
	}

	active := models.ProfileStatusActive
	assert.True(t, membership.Belongs(conv, user, &models.Profile{Status: active, IsMentor: true, MentorFor: []primitive.ObjectID{org}}, true))
	assert.False(t, membership.Belongs(conv, user, &models.Profile{Status: active, IsMentor: true, MentorFor: []primitive.ObjectID{other}}, true))
	// students are not addressed through organization conversations
	assert.False(t, membership.Belongs(conv, user, &models.Profile{Status: active, IsStudent: true, Student: &models.StudentData{}}, true))

	conv.IncludeWinners = true
	w := &models.Profile{Status: active, IsStudent: true, Student: &models.StudentData{IsWinner: true, WinnerFor: []primitive.ObjectID{org}}}
	assert.True(t, membership.Belongs(conv, user, w, true))
}

func TestBelongs_OrganizationSkipsBannedProfiles(t *testing.T) {
	org := primitive.NewObjectID()
	conv := models.Conversation{
		RecipientsType:  models.RecipientsOrganization,
		OrganizationID:  &org,
		AutoUpdateUsers: true,
		CreatorID:       primitive.NewObjectID(),
		IncludeAdmins:   true,
		IncludeMentors:  true,
		IncludeWinners:  true,
	}
	banned := models.ProfileStatusBanned

	tests := []struct {
		name    string
		profile *models.Profile
	}{
		{"admin", &models.Profile{Status: banned, IsOrgAdmin: true, OrgAdminFor: []primitive.ObjectID{org}, MentorFor: []primitive.ObjectID{org}}},
		{"mentor", &models.Profile{Status: banned, IsMentor: true, MentorFor: []primitive.ObjectID{org}}},
		{"winner", &models.Profile{Status: banned, IsStudent: true, Student: &models.StudentData{IsWinner: true, WinnerFor: []primitive.ObjectID{org}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, membership.Belongs(conv, primitive.NewObjectID(), tt.profile, true))
		})
	}
}

func TestBelongs_CreatorAndFrozen(t *testing.T) {
	creator := primitive.NewObjectID()
	conv := models.Conversation{
		RecipientsType:  models.RecipientsProgram,
		CreatorID:       creator,
		AutoUpdateUsers: true,
	}
	assert.True(t, membership.Belongs(conv, creator, nil, true))

	stranger := primitive.NewObjectID()
	assert.False(t, membership.Belongs(conv, stranger, &models.Profile{}, true))

	conv.AutoUpdateUsers = false
	assert.True(t, membership.Belongs(conv, stranger, &models.Profile{}, false))
	assert.False(t, membership.Belongs(conv, stranger, &models.Profile{}, true))
}

func TestBelongs_UserConversation(t *testing.T) {
	conv := models.Conversation{RecipientsType: models.RecipientsUser, AutoUpdateUsers: true}
	assert.True(t, membership.Belongs(conv, primitive.NewObjectID(), nil, true))
}

func TestProfileFilter(t *testing.T) {
	org := primitive.NewObjectID()
	conv := models.Conversation{
		ProgramID:      primitive.NewObjectID(),
		RecipientsType: models.RecipientsOrganization,
		OrganizationID: &org,
		IncludeAdmins:  true,
	}
	f := membership.ProfileFilter(conv)
	if assert.NotNil(t, f) {
		assert.Equal(t, conv.ProgramID, f["program_id"])
		assert.Equal(t, models.ProfileStatusActive, f["status"])
		assert.Len(t, f["$or"], 1)
	}

	conv.RecipientsType = models.RecipientsProgram
	if f := membership.ProfileFilter(conv); assert.NotNil(t, f) {
		assert.NotContains(t, f, "status")
	}

	assert.Nil(t, membership.ProfileFilter(models.Conversation{RecipientsType: models.RecipientsUser}))
	assert.Nil(t, membership.ProfileFilter(models.Conversation{RecipientsType: models.RecipientsProgram}))
}
