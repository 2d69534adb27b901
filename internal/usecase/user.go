package usecase

import (
	"context"
	"fmt"
	"math"

	"github.com/ErlanBelekov/auth-service/internal/domain"
	"github.com/ErlanBelekov/auth-service/internal/repository"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

type UserUsecase struct {
	users repository.UserRepository
}

func NewUserUsecase(users repository.UserRepository) *UserUsecase {
	return &UserUsecase{users: users}
}

type ListUsersInput struct {
	Page  int // 1-based; <1 means first page
	Limit int // clamped to [1, 100]; 0 means 10
}

type UserPage struct {
	Users []*domain.User
	Total int
	Page  int
	Limit int
}

func (u *UserUsecase) ListUsers(ctx context.Context, input ListUsersInput) (*UserPage, error) {
	page := max(input.Page, 1)

	limit := input.Limit
	switch {
	case limit <= 0:
		limit = defaultPageLimit
	case limit > maxPageLimit:
		limit = maxPageLimit
	}

	if page > math.MaxInt/limit {
		return nil, domain.ErrPageOutOfRange
	}

	users, err := u.users.List(ctx, repository.ListUsersInput{
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	total, err := u.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	return &UserPage{Users: users, Total: total, Page: page, Limit: limit}, nil
}
