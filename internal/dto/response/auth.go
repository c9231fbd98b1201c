package response

import (
	"time"

	"eventhub/internal/data/entity"
)

type UserResponse struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Role      entity.UserRole `json:"role"`
}

type IssueCodeResponse struct {
	Success   bool      `json:"success"`
	EventName string    `json:"eventName"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type LoginResponse struct {
	Success     bool         `json:"success"`
	User        UserResponse `json:"user"`
	RedirectURL string       `json:"redirectUrl"`
	ExpiresAt   time.Time    `json:"expiresAt"`
}

type SessionResponse struct {
	Success   bool         `json:"success"`
	User      UserResponse `json:"user"`
	ExpiresAt time.Time    `json:"expiresAt,omitempty"`
}

type AutoLoginResponse struct {
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type CleanupResponse struct {
	Success         bool  `json:"success"`
	Deleted         int64 `json:"deleted"`
	SessionsDeleted int64 `json:"sessionsDeleted"`
}

// UserToResponse falls back to splitting Name when first/last are empty.
func UserToResponse(user *entity.User) UserResponse {
	first, last := user.FirstName, user.LastName
	if first == "" && last == "" {
		first, last = splitName(user.Name)
	}
	return UserResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		Name:      user.Name,
		FirstName: first,
		LastName:  last,
		Role:      user.Role,
	}
}

func splitName(name string) (string, string) {
	for i := 0; i < len(name); i++ {
		if name[i] == ' ' {
			return name[:i], name[i+1:]
		}
	}
	return name, ""
}
