package handler

import "github.com/Sajadaliismail/gatekeeper/internal/core/domain"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type signupRequest struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Address  string `json:"address"  validate:"max=500"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Role  string `json:"role"`
	Token string `json:"token"`
	Email string `json:"email"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type changeRoleRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role"  validate:"required,oneof=admin moderator user"`
}

type changeRoleResponse struct {
	Role bool `json:"role"`
}

type changeStatusRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	IsBanned *bool  `json:"isBanned" validate:"required"`
}

type removeUserRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// editUserRequest targets the caller when Email is empty. Address is left
// untouched when omitted.
type editUserRequest struct {
	Name    string  `json:"name"    validate:"required,max=100"`
	Address *string `json:"address" validate:"omitempty,max=500"`
	Email   string  `json:"email"   validate:"omitempty,email"`
}

type usersResponse struct {
	Users []domain.UserProfile `json:"users"`
}
