package dto

import (
	"time"

	"gptuessr/src/core/domain"
)

// RegisterRequest is the payload for POST /v1/users/register. The subject id
// always comes from the verified token, never from the body.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email" binding:"omitempty,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ImageURL  string `json:"image_url" binding:"omitempty,url"`
}

func (r RegisterRequest) ToRegistration(subjectID string) domain.Registration {
	return domain.Registration{
		SubjectID: subjectID,
		Username:  r.Username,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		ImageURL:  r.ImageURL,
	}
}

// UserResponse is the public view of a user.
type UserResponse struct {
	SubjectID    string           `json:"subject_id"`
	Username     string           `json:"username"`
	DisplayName  string           `json:"display_name"`
	ImageURL     string           `json:"image_url,omitempty"`
	Online       bool             `json:"online"`
	LastActiveAt *time.Time       `json:"last_active_at,omitempty"`
	Stats        domain.UserStats `json:"stats"`
	CreatedAt    time.Time        `json:"created_at"`
}

// MeResponse adds the fields only the user themself may see.
type MeResponse struct {
	UserResponse
	Email       string     `json:"email,omitempty"`
	FirstName   string     `json:"first_name,omitempty"`
	LastName    string     `json:"last_name,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	Friends     []string   `json:"friends"`
}

func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		SubjectID:    u.SubjectID,
		Username:     u.Username,
		DisplayName:  u.DisplayName,
		ImageURL:     u.ImageURL,
		Online:       u.Online,
		LastActiveAt: u.LastActiveAt,
		Stats:        u.Stats,
		CreatedAt:    u.CreatedAt,
	}
}

func NewMeResponse(u *domain.User) MeResponse {
	friends := u.Friends
	if friends == nil {
		friends = []string{}
	}
	return MeResponse{
		UserResponse: NewUserResponse(u),
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		LastLoginAt:  u.LastLoginAt,
		Friends:      friends,
	}
}

// WebhookResponse acknowledges a delivery.
type WebhookResponse struct {
	Received bool   `json:"received"`
	Event    string `json:"event"`
}
