package dto

import "github.com/noah-isme/school-points-api/internal/models"

// UserUpdateRequest captures role and status changes.
type UserUpdateRequest struct {
	Role   *string `json:"role" validate:"omitempty,oneof=super admin teacher student"`
	Status *string `json:"status" validate:"omitempty,oneof=pending active deactivated"`
}

// UserResponse serializes an application profile.
type UserResponse struct {
	ID     string `json:"id"`
	AuthID string `json:"auth_id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// NewUserResponse converts a user model into a DTO.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:     user.ID,
		AuthID: user.AuthID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		Status: user.Status,
	}
}
