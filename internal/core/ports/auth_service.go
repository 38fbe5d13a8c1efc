package ports

import (
	"context"
	"time"
)

// SignUpInput carries the registration data accepted by AuthService.SignUp.
// An empty Roles slice means the default role.
type SignUpInput struct {
	Email       string
	Password    string
	Name        string
	LastName    string
	PhoneNumber string
	Birthdate   time.Time
	ProfileURL  string
	Address     string
	Roles       []string
}

// UserSummary is the projection returned after sign-up.
type UserSummary struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	LastName string `json:"lastName"`
}

type AuthService interface {
	SignUp(ctx context.Context, in SignUpInput) (*UserSummary, error)
	SignIn(ctx context.Context, email, password string) (string, error)
}
