package entity

import "github.com/garyjia/purchase-approval/internal/domain/workflow"

// Actor is the authenticated identity performing an operation
type Actor struct {
	ID         string        `json:"id"`
	Role       workflow.Role `json:"role"`
	Department string        `json:"department"`
	Name       string        `json:"name"`
}

// User is a directory entry, used to address notifications
type User struct {
	ID         string        `json:"id"`
	Username   string        `json:"username"`
	Email      string        `json:"email"`
	FullName   string        `json:"full_name"`
	Role       workflow.Role `json:"role"`
	Department string        `json:"department"`
	IsActive   bool          `json:"is_active"`
}

// DisplayName returns the full name, or the username when unset
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
