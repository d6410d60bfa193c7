// Package memory holds process-local repository implementations used by tests
// and by STORE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/taskbot/domain"
	"github.com/fastygo/taskbot/repository"
)

type TaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]domain.Task
	now   func() time.Time
}

var _ repository.TaskRepository = (*TaskRepository)(nil)

func NewTaskRepository() *TaskRepository {
	return &TaskRepository{
		tasks: make(map[string]domain.Task),
		now:   time.Now,
	}
}

func (r *TaskRepository) Add(_ context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil || task.OwnerID == "" || task.Title == "" || task.DueAt.IsZero() {
		return nil, domain.ErrInvalidPayload
	}
	task.Normalize()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := r.now()
	task.IsDone = false
	task.CreatedAt = now
	task.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[task.ID]; exists {
		return nil, domain.NewError(domain.ErrCodeConflict, "task already exists")
	}
	r.tasks[task.ID] = *task
	return task, nil
}

func (r *TaskRepository) Get(_ context.Context, id, ownerID string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return nil, domain.ErrTaskNotFound
	}
	return &task, nil
}

func (r *TaskRepository) ListActive(_ context.Context, ownerID string) ([]domain.Task, error) {
	out := r.filter(func(t domain.Task) bool { return t.OwnerID == ownerID && !t.IsDone })
	sortByDue(out, false)
	return out, nil
}

func (r *TaskRepository) ListDone(_ context.Context, ownerID string, limit int) ([]domain.Task, error) {
	out := r.filter(func(t domain.Task) bool { return t.OwnerID == ownerID && t.IsDone })
	sortByDue(out, true)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *TaskRepository) ListAllActive(_ context.Context) ([]domain.Task, error) {
	out := r.filter(func(t domain.Task) bool { return !t.IsDone })
	sortByDue(out, false)
	return out, nil
}

func (r *TaskRepository) MarkDone(_ context.Context, id string) error {
	return r.setDone(id, true)
}

func (r *TaskRepository) MarkUndone(_ context.Context, id string) error {
	return r.setDone(id, false)
}

func (r *TaskRepository) Delete(_ context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return domain.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *TaskRepository) ClearDone(_ context.Context, ownerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for id, task := range r.tasks {
		if task.OwnerID == ownerID && task.IsDone {
			delete(r.tasks, id)
			removed++
		}
	}
	return removed, nil
}

func (r *TaskRepository) setDone(id string, done bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	task.IsDone = done
	task.UpdatedAt = r.now()
	r.tasks[id] = task
	return nil
}

func (r *TaskRepository) filter(keep func(domain.Task) bool) []domain.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		if keep(task) {
			out = append(out, task)
		}
	}
	return out
}

func sortByDue(tasks []domain.Task, desc bool) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].DueAt.Equal(tasks[j].DueAt) {
			return tasks[i].ID < tasks[j].ID
		}
		if desc {
			return tasks[i].DueAt.After(tasks[j].DueAt)
		}
		return tasks[i].DueAt.Before(tasks[j].DueAt)
	})
}
