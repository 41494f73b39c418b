package connectionpolicy_test

import (
	"testing"

	"github.com/dalemusser/melange/internal/app/policy/connectionpolicy"
	"github.com/dalemusser/melange/internal/app/policy/orgpolicy"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestForConnection(t *testing.T) {
	org := primitive.NewObjectID()
	userID := primitive.NewObjectID()
	profileID := primitive.NewObjectID()
	conn := models.Connection{UserID: userID, ProfileID: profileID, OrganizationID: org}

	owner := orgpolicy.Actor{UserID: userID, Profile: &models.Profile{
		ID: profileID, Status: models.ProfileStatusActive,
	}}
	orgAdmin := orgpolicy.Actor{UserID: primitive.NewObjectID(), Profile: &models.Profile{
		ID: primitive.NewObjectID(), Status: models.ProfileStatusActive,
		OrgAdminFor: []primitive.ObjectID{org}, MentorFor: []primitive.ObjectID{org},
	}}
	bannedAdmin := orgpolicy.Actor{UserID: primitive.NewObjectID(), Profile: &models.Profile{
		ID: primitive.NewObjectID(), Status: models.ProfileStatusBanned,
		OrgAdminFor: []primitive.ObjectID{org},
	}}
	mentor := orgpolicy.Actor{UserID: primitive.NewObjectID(), Profile: &models.Profile{
		ID: primitive.NewObjectID(), Status: models.ProfileStatusActive,
		MentorFor: []primitive.ObjectID{org},
	}}
	siteAdmin := orgpolicy.Actor{UserID: primitive.NewObjectID(), IsAdmin: true}
	stranger := orgpolicy.Actor{UserID: primitive.NewObjectID()}

	tests := []struct {
		name  string
		actor orgpolicy.Actor
		want  connectionpolicy.Access
	}{
		{"owner", owner, connectionpolicy.Access{UserSide: true}},
		{"org admin", orgAdmin, connectionpolicy.Access{OrgSide: true}},
		{"banned org admin", bannedAdmin, connectionpolicy.Access{}},
		{"mentor", mentor, connectionpolicy.Access{}},
		{"site admin", siteAdmin, connectionpolicy.Access{OrgSide: true}},
		{"stranger", stranger, connectionpolicy.Access{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := connectionpolicy.ForConnection(tc.actor, conn)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.want.UserSide || tc.want.OrgSide, got.CanView())
		})
	}
}

func TestCanStart(t *testing.T) {
	org := models.Organization{ID: primitive.NewObjectID()}
	active := orgpolicy.Actor{Profile: &models.Profile{Status: models.ProfileStatusActive}}
	student := orgpolicy.Actor{Profile: &models.Profile{Status: models.ProfileStatusActive, IsStudent: true}}
	none := orgpolicy.Actor{}
	admin := orgpolicy.Actor{Profile: &models.Profile{
		Status: models.ProfileStatusActive, OrgAdminFor: []primitive.ObjectID{org.ID},
	}}

	assert.True(t, connectionpolicy.CanStartAsUser(active))
	assert.False(t, connectionpolicy.CanStartAsUser(student))
	assert.False(t, connectionpolicy.CanStartAsUser(none))

	assert.True(t, connectionpolicy.CanStartAsOrg(admin, org))
	assert.False(t, connectionpolicy.CanStartAsOrg(active, org))
}
