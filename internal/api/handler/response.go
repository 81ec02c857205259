package handler

import (
	"time"

	"github.com/deathkiller/api/internal/core/domain"
)

// successResponse is the envelope for every 2xx body.
type successResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty" example:"Login successful"`
	Data    any    `json:"data,omitempty"`
}

func success(message string, data any) successResponse {
	return successResponse{Success: true, Message: message, Data: data}
}

// userView is the public projection of a user. The password hash has no
// field here and cannot be rendered.
type userView struct {
	ID        string      `json:"id" example:"0b9f7c1e-8d1a-4e2b-9a55-1f0c6a3e2d11"`
	Email     string      `json:"email" example:"a@x.com"`
	Username  *string     `json:"username" example:"alice"`
	Role      domain.Role `json:"role" example:"user"`
	CreatedAt *time.Time  `json:"created_at,omitempty"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
}

func newUserView(u *domain.User, withTimestamps bool) userView {
	v := userView{ID: u.ID, Email: u.Email, Role: u.Role}
	if u.Username != "" {
		name := u.Username
		v.Username = &name
	}
	if withTimestamps {
		created, updated := u.CreatedAt, u.UpdatedAt
		v.CreatedAt, v.UpdatedAt = &created, &updated
	}
	return v
}

type authData struct {
	User  userView `json:"user"`
	Token string   `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

type userData struct {
	User userView `json:"user"`
}

// errorResponse documents the failure envelope rendered by the API error
// handler.
type errorResponse struct {
	Success bool                    `json:"success" example:"false"`
	Error   string                  `json:"error" example:"Invalid email or password"`
	Details []domain.FieldViolation `json:"details,omitempty"`
}
