package repository

import (
	"context"

	"github.com/ErlanBelekov/auth-service/internal/domain"
)

type ListUsersInput struct {
	Limit  int
	Offset int
}

// UserRepository is the user directory. Email uniqueness is enforced by the
// store itself, so Create must return domain.ErrDuplicateEmail on conflict
// even when a prior lookup found nothing.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context, input ListUsersInput) ([]*domain.User, error)
	Count(ctx context.Context) (int, error)
}
