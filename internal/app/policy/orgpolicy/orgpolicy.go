// Package orgpolicy provides authorization policies for acting on behalf
// of an organization.
//
// Authorization rules:
//   - Site admins can act for every organization of every program
//   - Org admins can manage their organizations (decisions on proposals,
//     tasks, connections, invitations)
//   - Mentors can view their organizations' proposals and close tasks
//     they mentor
//   - Banned profiles have no organization rights
package orgpolicy

import (
	"context"
	"errors"
	"net/http"

	profilestore "github.com/dalemusser/melange/internal/app/store/profiles"
	"github.com/dalemusser/melange/internal/app/system/authz"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Actor is the signed-in user as seen from one program.
type Actor struct {
	UserID  primitive.ObjectID
	Name    string
	IsAdmin bool
	// Profile is nil when the user has no profile in the program.
	Profile *models.Profile
}

// Load returns the actor for the current request within programID.
// ok is false when nobody is signed in.
func Load(ctx context.Context, db *mongo.Database, r *http.Request, programID primitive.ObjectID) (Actor, bool, error) {
	role, name, userID, ok := authz.UserCtx(r)
	if !ok {
		return Actor{}, false, nil
	}
	a := Actor{UserID: userID, Name: name, IsAdmin: role == models.UserRoleAdmin}

	p, err := profilestore.New(db).GetByUserProgram(ctx, userID, programID)
	switch {
	case err == nil:
		a.Profile = &p
	case errors.Is(err, profilestore.ErrNotFound):
	default:
		return Actor{}, false, err
	}
	return a, true, nil
}

func (a Actor) active() bool {
	return a.Profile != nil && a.Profile.Status == models.ProfileStatusActive
}

// CanAdminOrg reports whether the actor may manage orgID.
func (a Actor) CanAdminOrg(orgID primitive.ObjectID) bool {
	if a.IsAdmin {
		return true
	}
	return a.active() && a.Profile.IsOrgAdminFor(orgID)
}

// CanMentorOrg reports whether the actor is a mentor (or admin) of orgID.
func (a Actor) CanMentorOrg(orgID primitive.ObjectID) bool {
	if a.CanAdminOrg(orgID) {
		return true
	}
	return a.active() && a.Profile.IsMentorFor(orgID)
}

// IsStudent reports whether the actor has an active student profile.
func (a Actor) IsStudent() bool {
	return a.active() && a.Profile.IsStudent
}

// ProfileID returns the actor's profile ID or NilObjectID.
func (a Actor) ProfileID() primitive.ObjectID {
	if a.Profile == nil {
		return primitive.NilObjectID
	}
	return a.Profile.ID
}
