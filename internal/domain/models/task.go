// internal/domain/models/task.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TaskPending = "pending"
	TaskLeased  = "leased"
	TaskDone    = "done"
	TaskFailed  = "failed"
)

// Task is a queued POST to one of the /tasks endpoints.
type Task struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	URL        string             `bson:"url" json:"url"`
	Params     map[string]string  `bson:"params" json:"params"`
	ETA        time.Time          `bson:"eta" json:"eta"`
	Status     string             `bson:"status" json:"status"`
	Attempts   int                `bson:"attempts" json:"attempts"`
	LastError  string             `bson:"last_error,omitempty" json:"last_error,omitempty"`
	LeaseUntil *time.Time         `bson:"lease_until,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
