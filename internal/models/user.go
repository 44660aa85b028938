package models

import (
	"strings"
	"time"
)

// Role is a user's role in the competition
type Role string

const (
	RoleParticipant Role = "participant"
	RoleEvaluator   Role = "evaluator"
	RoleAdmin       Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleParticipant, RoleEvaluator, RoleAdmin:
		return true
	}
	return false
}

// User represents an account
type User struct {
	ID            string    `json:"id" bson:"_id"`
	Name          string    `json:"name" bson:"name"`
	Email         string    `json:"email" bson:"email"`
	PasswordHash  string    `json:"-" bson:"passwordHash"` // Never serialize
	Role          Role      `json:"role" bson:"role"`
	Approved      bool      `json:"approved" bson:"approved"`
	TeamID        string    `json:"teamId,omitempty" bson:"teamId,omitempty"`
	Address       string    `json:"address,omitempty" bson:"address,omitempty"`
	Phone         string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Qualification string    `json:"qualification,omitempty" bson:"qualification,omitempty"`
	Experience    string    `json:"experience,omitempty" bson:"experience,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

// HasRole checks if the user holds any of the given roles
func (u *User) HasRole(roles ...Role) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// CanEvaluate returns true for approved evaluators
func (u *User) CanEvaluate() bool {
	return u.HasRole(RoleEvaluator) && u.Approved
}

// Summary returns the public identity of the user
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserSummary is the subset of user data embedded in other views
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserFilter defines filters for listing users
type UserFilter struct {
	Role     Role
	Approved *bool
}
