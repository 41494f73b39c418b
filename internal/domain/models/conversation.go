// internal/domain/models/conversation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RecipientsProgram      = "program"
	RecipientsOrganization = "organization"
	RecipientsUser         = "user"
)

// Conversation declares who belongs to it; ConversationUser rows are the
// materialized participant set.
type Conversation struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ProgramID       primitive.ObjectID  `bson:"program_id" json:"program_id"`
	CreatorID       primitive.ObjectID  `bson:"creator_id" json:"creator_id"`
	Subject         string              `bson:"subject" json:"subject"`
	RecipientsType  string              `bson:"recipients_type" json:"recipients_type"`
	OrganizationID  *primitive.ObjectID `bson:"organization_id,omitempty" json:"organization_id,omitempty"`
	IncludeAdmins   bool                `bson:"include_admins" json:"include_admins"`
	IncludeMentors  bool                `bson:"include_mentors" json:"include_mentors"`
	IncludeStudents bool                `bson:"include_students" json:"include_students"`
	IncludeWinners  bool                `bson:"include_winners" json:"include_winners"`
	AutoUpdateUsers bool                `bson:"auto_update_users" json:"auto_update_users"`
	LastMessageOn   time.Time           `bson:"last_message_on" json:"last_message_on"`
	CreatedAt       time.Time           `bson:"created_at" json:"created_at"`
}

type ConversationUser struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID      primitive.ObjectID `bson:"conversation_id" json:"conversation_id"`
	UserID              primitive.ObjectID `bson:"user_id" json:"user_id"`
	ProgramID           primitive.ObjectID `bson:"program_id" json:"program_id"`
	EnableNotifications bool               `bson:"enable_notifications" json:"enable_notifications"`
	LastMessageSeenOn   time.Time          `bson:"last_message_seen_on" json:"last_message_seen_on"`
}

type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID primitive.ObjectID `bson:"conversation_id" json:"conversation_id"`
	AuthorID       primitive.ObjectID `bson:"author_id" json:"author_id"`
	Content        string             `bson:"content" json:"content"`
	SentOn         time.Time          `bson:"sent_on" json:"sent_on"`
}
