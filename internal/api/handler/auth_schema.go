package handler

import (
	"time"

	"github.com/learnpath/lms-api/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error        string   `json:"error"`
	AllowedRoles []string `json:"allowed_roles,omitempty"`
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email"    validate:"required_without=Username"`
	Username string `json:"username" validate:"required_without=Email"`
	Password string `json:"password" validate:"required"`
}

// identifier returns the login name; usernames are email addresses.
func (r loginRequest) identifier() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Username
}

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name"     validate:"max=120"`
}

type createUserRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name"     validate:"max=120"`
	Role     string `json:"role"     validate:"required,oneof=ADMIN INSTRUCTOR STUDENT"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=ADMIN INSTRUCTOR STUDENT"`
}

type identityResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

type loginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Identity  identityResponse `json:"identity"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type userResponse struct {
	identityResponse
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toIdentityResponse(u *domain.User) identityResponse {
	return identityResponse{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  string(u.Role),
	}
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		identityResponse: toIdentityResponse(u),
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}
