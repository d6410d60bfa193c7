package usecase

import (
	"context"
	"strings"
	"sync"

	"github.com/fastygo/taskbot/domain"
	"github.com/fastygo/taskbot/usecase/task"
)

// ActionHandler reacts to one reminder button press.
type ActionHandler func(ctx context.Context, ownerID, taskID string) (task.Reply, error)

// Dispatcher routes callback data such as "done:<id>" to its handler.
type Dispatcher struct {
	handlers map[domain.ReminderAction]ActionHandler
	mu       sync.RWMutex
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[domain.ReminderAction]ActionHandler),
	}
}

// NewTaskDispatcher wires the reminder actions to the task pipeline.
func NewTaskDispatcher(tasks *task.UseCase) *Dispatcher {
	d := NewDispatcher()
	d.Register(domain.ActionDone, tasks.CompleteReply)
	d.Register(domain.ActionSnooze, tasks.SnoozeReply)
	d.Register(domain.ActionDelete, tasks.DeleteReply)
	return d
}

func (d *Dispatcher) Register(action domain.ReminderAction, handler ActionHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[action] = handler
}

// ParseCallback splits callback data into its action and task id.
func ParseCallback(data string) (domain.ReminderAction, string, error) {
	action, taskID, ok := strings.Cut(strings.TrimSpace(data), ":")
	if !ok || action == "" || taskID == "" {
		return "", "", domain.ErrUnknownAction
	}
	return domain.ReminderAction(action), taskID, nil
}

// Dispatch runs the handler registered for the callback's action.
func (d *Dispatcher) Dispatch(ctx context.Context, ownerID, data string) (task.Reply, error) {
	action, taskID, err := ParseCallback(data)
	if err != nil {
		return task.Reply{}, err
	}
	d.mu.RLock()
	handler, ok := d.handlers[action]
	d.mu.RUnlock()
	if !ok {
		return task.Reply{}, domain.ErrUnknownAction
	}
	return handler(ctx, ownerID, taskID)
}
