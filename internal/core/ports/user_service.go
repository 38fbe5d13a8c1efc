package ports

import (
	"context"
	"time"
)

// UserProfile is the public projection of a user. It never carries the
// password hash.
type UserProfile struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	LastName    string     `json:"lastName"`
	PhoneNumber string     `json:"phoneNumber"`
	Birthdate   *time.Time `json:"birthdate,omitempty"`
	ProfileURL  string     `json:"profileUrl"`
	Address     string     `json:"address"`
	Roles       []string   `json:"roles"`
}

type UserService interface {
	GetAll(ctx context.Context) ([]*UserProfile, error)
	GetByID(ctx context.Context, id string) (*UserProfile, error)
}
