// internal/domain/models/connection.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Connection is the role negotiation record between a profile and an
// organization. At most one exists per (profile, organization).
type Connection struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProfileID      primitive.ObjectID `bson:"profile_id" json:"profile_id"`
	UserID         primitive.ObjectID `bson:"user_id" json:"user_id"`
	ProgramID      primitive.ObjectID `bson:"program_id" json:"program_id"`
	OrganizationID primitive.ObjectID `bson:"organization_id" json:"organization_id"`
	UserRole       string             `bson:"user_role" json:"user_role"`
	OrgRole        string             `bson:"org_role" json:"org_role"`
	SeenByUser     bool               `bson:"seen_by_user" json:"seen_by_user"`
	SeenByOrg      bool               `bson:"seen_by_org" json:"seen_by_org"`
	CreatedOn      time.Time          `bson:"created_on" json:"created_on"`
	LastModified   time.Time          `bson:"last_modified" json:"last_modified"`
}

// ConnectionMessage narrates a role transition or carries a comment.
// AuthorID is nil for auto-generated messages.
type ConnectionMessage struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ConnectionID    primitive.ObjectID  `bson:"connection_id" json:"connection_id"`
	AuthorID        *primitive.ObjectID `bson:"author_id,omitempty" json:"author_id,omitempty"`
	Content         string              `bson:"content" json:"content"`
	IsAutoGenerated bool                `bson:"is_auto_generated" json:"is_auto_generated"`
	Created         time.Time           `bson:"created" json:"created"`
}

// AnonymousConnection is an invitation by email to someone without a
// profile yet. It becomes a Connection when claimed with its token.
type AnonymousConnection struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrganizationID primitive.ObjectID `bson:"organization_id" json:"organization_id"`
	ProgramID      primitive.ObjectID `bson:"program_id" json:"program_id"`
	OrgRole        string             `bson:"org_role" json:"org_role"`
	Email          string             `bson:"email" json:"email"`
	Token          string             `bson:"token" json:"-"`
	ExpirationDate time.Time          `bson:"expiration_date" json:"expiration_date"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}
