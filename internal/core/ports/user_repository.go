package ports

import (
	"context"

	"github.com/userportal/auth-service/internal/core/domain"
)

// UserRepository defines persistence operations for user accounts.
// Returned users carry resolved role names.
type UserRepository interface {
	// Create inserts the user and returns it with its ID populated.
	// A clash on the unique email index yields domain.ErrDuplicateEmail.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
}

// RoleRepository defines persistence operations for roles.
type RoleRepository interface {
	// FindOrCreate returns the role with the given name, creating it when absent.
	// Concurrent callers racing on a new name all receive the same role.
	FindOrCreate(ctx context.Context, name string) (*domain.Role, error)
}
