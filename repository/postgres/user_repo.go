package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskbot/domain"
	"github.com/fastygo/taskbot/repository"
)

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates a Postgres-backed user repository.
func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
		SELECT id, COALESCE(timezone, ''), created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, id).Scan(&user.ID, &user.Timezone, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Ensure(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, domain.ErrInvalidPayload
	}
	const query = `INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *userRepository) Upsert(ctx context.Context, user *domain.User) error {
	if user == nil || user.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO users (id, timezone, created_at, updated_at)
	VALUES ($1, $2, COALESCE($3, NOW()), NOW())
	ON CONFLICT (id) DO UPDATE
	SET timezone = EXCLUDED.timezone,
		updated_at = NOW()
	RETURNING created_at, updated_at;
	`

	return r.pool.QueryRow(ctx, query,
		user.ID,
		nullString(user.Timezone),
		nullTime(user.CreatedAt),
	).Scan(&user.CreatedAt, &user.UpdatedAt)
}
