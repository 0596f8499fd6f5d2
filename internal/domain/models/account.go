// internal/domain/models/account.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is a closed set of account roles. Authorization decisions compare
// Role values, never raw strings.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleCoordinator Role = "coordinator"
)

// AllRoles returns all valid account roles.
func AllRoles() []Role {
	return []Role{
		RoleAdmin,
		RoleCoordinator,
	}
}

// ParseRole normalizes s and returns the matching Role.
// ok is false if s is not a recognized role.
func ParseRole(s string) (Role, bool) {
	for _, r := range AllRoles() {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// IsValidRole checks if a role is valid.
func IsValidRole(r Role) bool {
	_, ok := ParseRole(string(r))
	return ok
}

// DefaultRole is the role assigned to accounts created through Google sign-in.
func DefaultRole() Role {
	return RoleCoordinator
}

// Account represents a user of the application.
//
// Accounts are created through Google sign-in and are soft-deactivated
// (status=disabled), never removed. Email is unique and stored lowercase.
type Account struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email" json:"email"` // unique, lowercase

	// Google identity linkage
	GoogleID  *string `bson:"google_id,omitempty" json:"google_id,omitempty"`
	AvatarURL string  `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`

	// Role and status
	Role   Role   `bson:"role" json:"role"`
	Status string `bson:"status" json:"status"` // active, disabled

	// Profile fields
	Phone      string `bson:"phone,omitempty" json:"phone,omitempty"`
	Department string `bson:"department,omitempty" json:"department,omitempty"`

	LastLoginAt *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}
