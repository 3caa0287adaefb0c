package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPER_ADMIN"
	RoleHROfficer  UserRole = "HR_OFFICER"
	RoleManager    UserRole = "MANAGER"
	RoleEmployee   UserRole = "EMPLOYEE"
)

// Valid reports whether the role is one of the known values.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleHROfficer, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// User represents an identity record in the users table. RefreshToken holds
// the single currently-valid refresh token for the user, or nil when logged
// out; overwriting it is what invalidates earlier sessions.
type User struct {
	ID           string     `db:"id" json:"id"`
	LoginID      string     `db:"login_id" json:"login_id"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	IsFirstLogin bool       `db:"is_first_login" json:"is_first_login"`
	RefreshToken *string    `db:"refresh_token" json:"-"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
