package api

import (
	"time"

	"github.com/google/uuid"
)

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest is the body of POST /api/auth/login. Login is a username or
// an email address.
type LoginRequest struct {
	Login    string `json:"login"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest is the body of POST /api/auth/refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse is returned by every auth endpoint.
type AuthResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	// ExpiresAt is the access token's expiry, RFC 3339.
	ExpiresAt string `json:"expires_at"`
}

// CreateTaskRequest is the body of POST /api/tasks. Title is checked by the
// service so that a blank title and a missing one get the same answer.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateTaskRequest is the body of PUT /api/tasks/{id}. Absent and null
// fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

// CreateTaskResponse is returned by POST /api/tasks.
type CreateTaskResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// HealthResponse is returned by the readiness probe.
type HealthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	CheckedAt time.Time `json:"checked_at"`
}
