package repository

import (
	"context"

	"github.com/fastygo/taskbot/domain"
)

// DoneListLimit caps how many completed tasks ListDone returns.
const DoneListLimit = 20

// TaskRepository is the durable Task Store.
type TaskRepository interface {
	// Add stores a new task and assigns its ID.
	Add(ctx context.Context, task *domain.Task) (*domain.Task, error)
	// Get returns the task only when it belongs to ownerID.
	Get(ctx context.Context, id, ownerID string) (*domain.Task, error)
	// ListActive returns ownerID's open tasks ordered by due time ascending.
	ListActive(ctx context.Context, ownerID string) ([]domain.Task, error)
	// ListDone returns up to limit completed tasks, newest due time first.
	ListDone(ctx context.Context, ownerID string, limit int) ([]domain.Task, error)
	// ListAllActive returns open tasks of every owner.
	ListAllActive(ctx context.Context) ([]domain.Task, error)
	MarkDone(ctx context.Context, id string) error
	MarkUndone(ctx context.Context, id string) error
	Delete(ctx context.Context, id, ownerID string) error
	// ClearDone removes ownerID's completed tasks and reports how many went.
	ClearDone(ctx context.Context, ownerID string) (int64, error)
}
