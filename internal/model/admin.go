package model

import "time"

// Admin roles
const (
	RoleAdmin = "admin"
)

// IsValidRole reports whether role is a known admin role
func IsValidRole(role string) bool {
	return role == RoleAdmin
}

// Admin represents an operator account allowed to manage rulemakings
type Admin struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// Profile returns the minimal identity handed out after authentication
func (a *Admin) Profile() AdminProfile {
	return AdminProfile{
		ID:    a.ID,
		Email: a.Email,
		Name:  a.Name,
		Role:  a.Role,
	}
}

// AdminProfile is an authenticated admin identity; it never carries the hash
type AdminProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// AdminUpdate lists the mutable admin fields; nil means unchanged
type AdminUpdate struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// Empty reports whether no field is set
func (u AdminUpdate) Empty() bool {
	return u.Name == nil && u.Role == nil && u.IsActive == nil
}
