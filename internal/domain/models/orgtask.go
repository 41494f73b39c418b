// internal/domain/models/orgtask.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OrgTaskOpen        = "open"
	OrgTaskClaimed     = "claimed"
	OrgTaskNeedsReview = "needs_review"
	OrgTaskClosed      = "closed"
)

// OrgTask is an item on an organization's task board.
type OrgTask struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ProgramID        primitive.ObjectID   `bson:"program_id" json:"program_id"`
	OrganizationID   primitive.ObjectID   `bson:"organization_id" json:"organization_id"`
	Title            string               `bson:"title" json:"title"`
	TitleCI          string               `bson:"title_ci" json:"-"`
	Description      string               `bson:"description" json:"description"`
	MentorIDs        []primitive.ObjectID `bson:"mentor_ids" json:"mentor_ids"`
	Status           string               `bson:"status" json:"status"`
	StudentProfileID *primitive.ObjectID  `bson:"student_profile_id,omitempty" json:"student_profile_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
