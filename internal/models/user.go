package models

import "time"

// UserRole represents the reporting-chain roles.
type UserRole string

const (
	RoleStudent           UserRole = "student"
	RoleLecturer          UserRole = "lecturer"
	RolePrincipalLecturer UserRole = "prl"
	RoleProgramLeader     UserRole = "pl"
)

// Valid returns true when the role is a supported value.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleLecturer, RolePrincipalLecturer, RoleProgramLeader:
		return true
	default:
		return false
	}
}

// Staff reports whether the role sits above students in the chain.
func (r UserRole) Staff() bool {
	switch r {
	case RoleLecturer, RolePrincipalLecturer, RoleProgramLeader:
		return true
	default:
		return false
	}
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	FacultyName  *string    `db:"faculty_name" json:"faculty_name,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
