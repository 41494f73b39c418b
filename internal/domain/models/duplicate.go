// internal/domain/models/duplicate.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProposalDuplicate records, per student, the proposals marked to be
// accepted by more than one organization.
type ProposalDuplicate struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ProgramID        primitive.ObjectID   `bson:"program_id" json:"program_id"`
	StudentProfileID primitive.ObjectID   `bson:"student_profile_id" json:"student_profile_id"`
	OrganizationIDs  []primitive.ObjectID `bson:"organization_ids" json:"organization_ids"`
	ProposalIDs      []primitive.ObjectID `bson:"proposal_ids" json:"proposal_ids"`
	IsDuplicate      bool                 `bson:"is_duplicate" json:"is_duplicate"`
	UpdatedAt        time.Time            `bson:"updated_at" json:"updated_at"`
}

const (
	DuplicatesIdle       = "idle"
	DuplicatesProcessing = "processing"
)

// DuplicatesStatus tracks the duplicate calculation for one program.
type DuplicatesStatus struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProgramID    primitive.ObjectID `bson:"program_id" json:"program_id"`
	Status       string             `bson:"status" json:"status"`
	CalculatedOn *time.Time         `bson:"calculated_on,omitempty" json:"calculated_on,omitempty"`
}
