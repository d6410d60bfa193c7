package repository

import (
	"context"

	"github.com/fastygo/taskbot/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// Ensure creates the user on first contact and returns the stored record.
	Ensure(ctx context.Context, id string) (*domain.User, error)
	Upsert(ctx context.Context, user *domain.User) error
}
