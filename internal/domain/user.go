package domain

import "time"

// UserRole enumerates the permission roles.
type UserRole string

const (
	RoleReporter UserRole = "REPORTER"
	RoleStaff    UserRole = "STAFF"
	RoleManager  UserRole = "MANAGER"
	RoleAdmin    UserRole = "ADMIN"
)

// User is any person interacting with the service desk.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	Role         UserRole
	DepartmentID *string
	Active       bool
	CreatedAt    time.Time
}

// DisplayName prefers the full name, falling back to the email address.
func (u *User) DisplayName() string {
	if u == nil {
		return "Unknown"
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}
