package dto

import (
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID             uint64     `json:"id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	ProfilePicture string     `json:"profilePicture,omitempty"`
	LastLogin      *time.Time `json:"lastLogin,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// UserSummaryDTO is the compact user embedded in other resources
type UserSummaryDTO struct {
	ID             uint64 `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	Token     string  `json:"token"`
	TokenType string  `json:"tokenType"`
	ExpiresIn int     `json:"expiresIn"`
	User      UserDTO `json:"user"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		ProfilePicture: user.ProfilePicture,
		LastLogin:      user.LastLogin,
		CreatedAt:      user.CreatedAt,
	}
}

// ToUserSummaryDTO converts a User model to UserSummaryDTO
func ToUserSummaryDTO(user models.User) UserSummaryDTO {
	return UserSummaryDTO{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		ProfilePicture: user.ProfilePicture,
	}
}

// userSummary returns nil when the relation was not preloaded
func userSummary(user models.User) *UserSummaryDTO {
	if user.ID == 0 {
		return nil
	}
	s := ToUserSummaryDTO(user)
	return &s
}
