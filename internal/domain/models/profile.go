// internal/domain/models/profile.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ProfileStatusActive = "active"
	ProfileStatusBanned = "banned"
)

// StudentData is present only for student profiles.
type StudentData struct {
	IsWinner         bool                 `bson:"is_winner" json:"is_winner"`
	WinnerFor        []primitive.ObjectID `bson:"winner_for" json:"winner_for"`
	NumberOfProjects int                  `bson:"number_of_projects" json:"number_of_projects"`
}

// Profile is a user's per-program role record.
//
// MentorFor/OrgAdminFor and the IsMentor/IsOrgAdmin flags are denormalized
// from connections and must only be changed through profilestore's
// Assign* methods.
type Profile struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID   `bson:"user_id" json:"user_id"`
	ProgramID   primitive.ObjectID   `bson:"program_id" json:"program_id"`
	LinkID      string               `bson:"link_id" json:"link_id"`
	PublicName  string               `bson:"public_name" json:"public_name"`
	Email       string               `bson:"email" json:"email"`
	Status      string               `bson:"status" json:"status"`
	MentorFor   []primitive.ObjectID `bson:"mentor_for" json:"mentor_for"`
	OrgAdminFor []primitive.ObjectID `bson:"org_admin_for" json:"org_admin_for"`
	IsMentor    bool                 `bson:"is_mentor" json:"is_mentor"`
	IsOrgAdmin  bool                 `bson:"is_org_admin" json:"is_org_admin"`
	IsStudent   bool                 `bson:"is_student" json:"is_student"`
	Student     *StudentData         `bson:"student,omitempty" json:"student,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsMentorFor reports whether orgID is in MentorFor.
func (p Profile) IsMentorFor(orgID primitive.ObjectID) bool {
	return containsID(p.MentorFor, orgID)
}

// IsOrgAdminFor reports whether orgID is in OrgAdminFor.
func (p Profile) IsOrgAdminFor(orgID primitive.ObjectID) bool {
	return containsID(p.OrgAdminFor, orgID)
}

// IsWinnerFor reports whether the student won a project with orgID.
func (p Profile) IsWinnerFor(orgID primitive.ObjectID) bool {
	return p.Student != nil && containsID(p.Student.WinnerFor, orgID)
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
