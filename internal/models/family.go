package models

import "time"

// Role is a member's standing within a family
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RoleMember    Role = "member"
	RoleChild     Role = "child"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RoleMember, RoleChild:
		return true
	}
	return false
}

// Family is a group of users sharing events and chat
type Family struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	InviteCode string    `json:"invite_code"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// FamilyMember represents the relationship between a user and a family.
// At most one exists per (FamilyID, UserID).
type FamilyMember struct {
	ID       string    `json:"id"`
	FamilyID string    `json:"family_id"`
	UserID   string    `json:"user_id"`
	Role     Role      `json:"role"`
	Relation *string   `json:"relation"`
	JoinedAt time.Time `json:"joined_at"`

	// User is populated only when the roster is loaded with profiles
	User *MemberProfile `json:"user,omitempty"`
}

// MemberProfile is the slice of a user profile shown on a roster
type MemberProfile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}
