// internal/domain/models/organization.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Organization admission statuses. pre_* are decisions that have been made
// but not yet published by the apply-decisions job.
const (
	OrgStatusApplying    = "applying"
	OrgStatusPreAccepted = "pre_accepted"
	OrgStatusPreRejected = "pre_rejected"
	OrgStatusAccepted    = "accepted"
	OrgStatusRejected    = "rejected"
)

// Organization includes a folded name for search/sort.
type Organization struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProgramID      primitive.ObjectID `bson:"program_id" json:"program_id"`
	OrgID          string             `bson:"org_id" json:"org_id"`
	Name           string             `bson:"name" json:"name"`
	NameCI         string             `bson:"name_ci" json:"-"`
	ContactEmail   string             `bson:"contact_email" json:"contact_email"`
	Description    string             `bson:"description" json:"description"`
	Status         string             `bson:"status" json:"status"`
	SlotAllocation int                `bson:"slot_allocation" json:"slot_allocation"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
