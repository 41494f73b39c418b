// internal/domain/models/program.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ProgramKindGSoC = "gsoc"
	ProgramKindGCI  = "gci"

	ProgramVisible   = "visible"
	ProgramInvisible = "invisible"
)

// ProgramMessages are the template strings used for notification mail.
type ProgramMessages struct {
	AcceptedOrgs            string `bson:"accepted_orgs" json:"accepted_orgs"`
	RejectedOrgs            string `bson:"rejected_orgs" json:"rejected_orgs"`
	MentorWelcome           string `bson:"mentor_welcome" json:"mentor_welcome"`
	AcceptedStudents        string `bson:"accepted_students" json:"accepted_students"`
	AcceptedStudentsWelcome string `bson:"accepted_students_welcome" json:"accepted_students_welcome"`
	RejectedStudents        string `bson:"rejected_students" json:"rejected_students"`
}

type Program struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Slug              string             `bson:"slug" json:"slug"`
	Name              string             `bson:"name" json:"name"`
	Kind              string             `bson:"kind" json:"kind"`
	Status            string             `bson:"status" json:"status"`
	Messages          ProgramMessages    `bson:"messages" json:"messages"`
	DuplicatesVisible bool               `bson:"duplicates_visible" json:"duplicates_visible"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
