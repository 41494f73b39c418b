// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account. Program participation lives on Profile.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	LoginID      string             `bson:"login_id" json:"login_id"`
	LoginIDCI    string             `bson:"login_id_ci" json:"-"`
	Email        string             `bson:"email" json:"email"`
	FullName     string             `bson:"full_name" json:"full_name"`
	FullNameCI   string             `bson:"full_name_ci" json:"-"`
	AuthMethod   string             `bson:"auth_method" json:"auth_method"` // password | google
	PasswordHash *string            `bson:"password_hash,omitempty" json:"-"`
	AuthReturnID *string            `bson:"auth_return_id,omitempty" json:"-"` // Google subject
	Role         string             `bson:"role" json:"role"`                  // user | admin
	Status       string             `bson:"status" json:"status"`              // active | disabled

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// User roles and statuses.
const (
	UserRoleUser  = "user"
	UserRoleAdmin = "admin"

	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"

	AuthMethodPassword = "password"
	AuthMethodGoogle   = "google"
)
