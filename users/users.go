package users

import (
	"strings"
	"time"
)

// RoleType is the global role of a TeamTrack account.
type RoleType string

const (
	RoleAdmin      RoleType = "ADMIN"       // Can administer every user and project
	RoleTeamMember RoleType = "TEAM_MEMBER" // Default role for registered accounts
)

var roleLabels = map[RoleType]string{
	RoleAdmin:      "Admin",
	RoleTeamMember: "Team Member",
}

// Label returns the display label for the role, or the raw value when unknown.
func (r RoleType) Label() string {
	if l, ok := roleLabels[r]; ok {
		return l
	}
	return string(r)
}

// Valid reports whether r is one of the roles the server accepts.
func (r RoleType) Valid() bool {
	_, ok := roleLabels[r]
	return ok
}

// User is a snapshot of an account as returned by the API.
// It is replaced wholesale on update and never patched in place.
type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Role       RoleType  `json:"role"`
	IsActive   bool      `json:"is_active"`
	DateJoined time.Time `json:"date_joined"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// FullName joins first and last name, falling back to the email address.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}
