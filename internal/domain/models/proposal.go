// internal/domain/models/proposal.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ProposalPending   = "pending"
	ProposalAccepted  = "accepted"
	ProposalRejected  = "rejected"
	ProposalWithdrawn = "withdrawn"
	ProposalIgnored   = "ignored"
)

type Proposal struct {
	ID                primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ProgramID         primitive.ObjectID   `bson:"program_id" json:"program_id"`
	OrganizationID    primitive.ObjectID   `bson:"organization_id" json:"organization_id"`
	StudentProfileID  primitive.ObjectID   `bson:"student_profile_id" json:"student_profile_id"`
	Title             string               `bson:"title" json:"title"`
	Abstract          string               `bson:"abstract" json:"abstract"`
	Status            string               `bson:"status" json:"status"`
	AcceptAsProject   bool                 `bson:"accept_as_project" json:"accept_as_project"`
	MentorIDs         []primitive.ObjectID `bson:"mentor_ids" json:"mentor_ids"`
	PossibleMentorIDs []primitive.ObjectID `bson:"possible_mentor_ids" json:"possible_mentor_ids"`
	Score             int                  `bson:"score" json:"score"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

const (
	ProjectAccepted  = "accepted"
	ProjectFailed    = "failed"
	ProjectWithdrawn = "withdrawn"
	ProjectCompleted = "completed"
)

// Project is the executing form of an accepted proposal.
type Project struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ProgramID        primitive.ObjectID   `bson:"program_id" json:"program_id"`
	OrganizationID   primitive.ObjectID   `bson:"organization_id" json:"organization_id"`
	StudentProfileID primitive.ObjectID   `bson:"student_profile_id" json:"student_profile_id"`
	ProposalID       primitive.ObjectID   `bson:"proposal_id" json:"proposal_id"`
	Title            string               `bson:"title" json:"title"`
	Abstract         string               `bson:"abstract" json:"abstract"`
	MentorIDs        []primitive.ObjectID `bson:"mentor_ids" json:"mentor_ids"`
	Status           string               `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
