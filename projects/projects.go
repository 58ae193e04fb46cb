package projects

import "time"

// Status of a project.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusArchived Status = "ARCHIVED"
)

var statusLabels = map[Status]string{
	StatusActive:   "Active",
	StatusArchived: "Archived",
}

func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// MemberRole is a user's role inside one project.
type MemberRole string

const (
	RoleProjectAdmin MemberRole = "PROJECT_ADMIN"
	RoleMember       MemberRole = "MEMBER"
)

var memberRoleLabels = map[MemberRole]string{
	RoleProjectAdmin: "Project Admin",
	RoleMember:       "Member",
}

func (r MemberRole) Label() string {
	if l, ok := memberRoleLabels[r]; ok {
		return l
	}
	return string(r)
}

func (r MemberRole) Valid() bool {
	_, ok := memberRoleLabels[r]
	return ok
}

// Project as returned by the list and detail endpoints. MemberCount is only
// set by the list endpoint and Members only by the detail endpoint.
type Project struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Status         Status    `json:"status"`
	CreatedBy      int64     `json:"created_by"`
	CreatedByEmail string    `json:"created_by_email"`
	MemberCount    *int      `json:"member_count,omitempty"`
	Members        []Member  `json:"members,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Member struct {
	ID       int64      `json:"id"`
	UserID   int64      `json:"user_id"`
	Email    string     `json:"email"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}

// Input is the create and update body. Empty fields are omitted so an
// update only touches what is set.
type Input struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Status      Status `json:"status,omitempty"`
}

type AddMemberRequest struct {
	UserID int64      `json:"user_id"`
	Role   MemberRole `json:"role,omitempty"`
}
