package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskbot/domain"
	"github.com/fastygo/taskbot/repository"
)

const taskColumns = `id, owner_id, title, due_at, category, urgency, remind_before, is_done, original_text, created_at, updated_at`

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) Add(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil || task.OwnerID == "" || task.Title == "" || task.DueAt.IsZero() {
		return nil, domain.ErrInvalidPayload
	}
	task.Normalize()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO tasks (id, owner_id, title, due_at, category, urgency, remind_before, is_done, original_text)
	VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)
	RETURNING created_at, updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.OwnerID,
		task.Title,
		task.DueAt,
		string(task.Category),
		string(task.Urgency),
		task.RemindBefore,
		task.OriginalText,
	).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}

	task.IsDone = false
	return task, nil
}

func (r *taskRepository) Get(ctx context.Context, id, ownerID string) (*domain.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrTaskNotFound
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND owner_id = $2`
	return scanTask(r.pool.QueryRow(ctx, query, id, ownerID))
}

func (r *taskRepository) ListActive(ctx context.Context, ownerID string) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + `
	FROM tasks
	WHERE owner_id = $1 AND is_done = FALSE
	ORDER BY due_at ASC`
	return r.list(ctx, query, ownerID)
}

func (r *taskRepository) ListDone(ctx context.Context, ownerID string, limit int) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + `
	FROM tasks
	WHERE owner_id = $1 AND is_done = TRUE
	ORDER BY due_at DESC
	LIMIT $2`
	return r.list(ctx, query, ownerID, clampLimit(limit))
}

func (r *taskRepository) ListAllActive(ctx context.Context) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + `
	FROM tasks
	WHERE is_done = FALSE
	ORDER BY due_at ASC`
	return r.list(ctx, query)
}

func (r *taskRepository) MarkDone(ctx context.Context, id string) error {
	return r.setDone(ctx, id, true)
}

func (r *taskRepository) MarkUndone(ctx context.Context, id string) error {
	return r.setDone(ctx, id, false)
}

func (r *taskRepository) Delete(ctx context.Context, id, ownerID string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrTaskNotFound
	}
	const query = `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`
	tag, err := r.pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) ClearDone(ctx context.Context, ownerID string) (int64, error) {
	const query = `DELETE FROM tasks WHERE owner_id = $1 AND is_done = TRUE`
	tag, err := r.pool.Exec(ctx, query, ownerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *taskRepository) setDone(ctx context.Context, id string, done bool) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrTaskNotFound
	}
	const query = `UPDATE tasks SET is_done = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, done)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) list(ctx context.Context, query string, args ...interface{}) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func scanTask(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Task, error) {
	var task domain.Task
	var (
		category string
		urgency  string
		dueAt    time.Time
	)

	if err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&dueAt,
		&category,
		&urgency,
		&task.RemindBefore,
		&task.IsDone,
		&task.OriginalText,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.DueAt = dueAt
	task.Category = domain.ParseCategory(category)
	task.Urgency = domain.ParseUrgency(urgency)
	return &task, nil
}
