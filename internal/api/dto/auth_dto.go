package dto

import (
	"time"

	"github.com/spec-kit/incident-service/internal/domain"
)

// RegisterRequest payload.
type RegisterRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries the issued token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse represents an account.
type UserResponse struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	FullName     string          `json:"full_name"`
	Role         domain.UserRole `json:"role"`
	DepartmentID *string         `json:"department_id"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// UpdateRoleRequest payload for admin role changes.
type UpdateRoleRequest struct {
	Role         domain.UserRole `json:"role" validate:"required"`
	DepartmentID *string         `json:"department_id"`
}

// UserSummary converts a domain user for responses.
func UserSummary(user *domain.User) UserResponse {
	return UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		FullName:     user.FullName,
		Role:         user.Role,
		DepartmentID: user.DepartmentID,
		Active:       user.Active,
		CreatedAt:    user.CreatedAt,
	}
}
