package dto

import "github.com/yukikurage/taskpick-api/internal/models"

// UserDTO represents a user in API responses
type UserDTO struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	IsMegaUser      bool   `json:"isMegaUser"`
	AssistantOn     bool   `json:"assistantOn"`
	AccessRequested bool   `json:"accessRequested"`
}

// AuthResponse is returned by signup and signin
type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// ValidateResponse is returned by the token validation endpoint
type ValidateResponse struct {
	Valid bool `json:"valid"`
}

// ToUserDTO converts a user model to a DTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:              user.ID,
		Email:           user.Email,
		Name:            user.Name,
		IsMegaUser:      user.IsMegaUser,
		AssistantOn:     user.AssistantOn,
		AccessRequested: user.AccessRequested,
	}
}
