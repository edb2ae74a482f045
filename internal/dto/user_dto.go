package dto

import (
	"time"

	"github.com/noah-isme/peerval-go-api/internal/models"
)

// RegisterRequest describes the self-service signup payload. Accounts are
// created with the student role; admins promote from there.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"required,email,max=160"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest describes the credential payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries the signed token plus the account it belongs to.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserCreateRequest is the admin payload for provisioning an account with an
// explicit role.
type UserCreateRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"required,email,max=160"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=admin teacher student"`
}

// UserUpdateRequest updates profile fields; nil fields are left untouched.
type UserUpdateRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=120"`
	Email *string `json:"email" validate:"omitempty,email,max=160"`
}

// RoleUpdateRequest switches an account's role.
type RoleUpdateRequest struct {
	Role string `json:"role" validate:"required,oneof=admin teacher student"`
}

// UserListRequest filters admin account listings.
type UserListRequest struct {
	Search   string `query:"search" validate:"omitempty,max=160"`
	Role     string `query:"role" validate:"omitempty,oneof=admin teacher student"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// UserResponse is the serialized account representation.
type UserResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserResponse converts a model into a DTO.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

// NewUserResponseSlice converts a slice of models into DTOs.
func NewUserResponseSlice(users []models.User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, NewUserResponse(user))
	}

	return responses
}
