package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/userportal/auth-service/internal/core/domain"
	"github.com/userportal/auth-service/internal/core/ports"
)

type UserService struct {
	repo ports.UserRepository
	log  zerolog.Logger
}

func NewUserService(repo ports.UserRepository, log zerolog.Logger) *UserService {
	return &UserService{repo: repo, log: log}
}

// GetAll returns every user as a public projection. No pagination is applied.
func (s *UserService) GetAll(ctx context.Context) ([]*ports.UserProfile, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]*ports.UserProfile, 0, len(users))
	for _, u := range users {
		out = append(out, toProfile(u))
	}
	return out, nil
}

// GetByID returns the public projection of one user, or
// domain.ErrUserNotFound.
func (s *UserService) GetByID(ctx context.Context, id string) (*ports.UserProfile, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("user_id", user.ID).Int("roles", len(user.Roles)).Msg("user loaded")
	return toProfile(user), nil
}

func toProfile(u *domain.User) *ports.UserProfile {
	p := &ports.UserProfile{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
		ProfileURL:  u.ProfileURL,
		Address:     u.Address,
		Roles:       append([]string{}, u.Roles...),
	}
	if !u.Birthdate.IsZero() {
		bd := u.Birthdate
		p.Birthdate = &bd
	}
	return p
}
