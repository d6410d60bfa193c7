package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fastygo/taskbot/domain"
	"github.com/fastygo/taskbot/repository"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

var _ repository.UserRepository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.User)}
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &user, nil
}

func (r *UserRepository) Ensure(_ context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		now := time.Now()
		user = domain.User{ID: id, CreatedAt: now, UpdatedAt: now}
		r.users[id] = user
	}
	return &user, nil
}

func (r *UserRepository) Upsert(_ context.Context, user *domain.User) error {
	if user == nil || user.ID == "" {
		return domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if existing, ok := r.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	} else if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}
