package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskbot/domain"
	"github.com/fastygo/taskbot/repository"
)

// Notifier delivers a rendered reminder to its owner.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Outbox keeps notifications that could not be delivered right away.
type Outbox interface {
	Enqueue(ctx context.Context, n domain.Notification) error
}

// TaskReader is the read side of the task store used at fire time.
type TaskReader interface {
	Get(ctx context.Context, id, ownerID string) (*domain.Task, error)
}

// Deliverer is the scheduler's fire handler.
type Deliverer struct {
	tasks    TaskReader
	users    repository.UserRepository
	ledger   repository.DeliveryLedger
	notifier Notifier
	outbox   Outbox
	location *time.Location
	logger   *zap.Logger
}

func NewDeliverer(
	tasks TaskReader,
	users repository.UserRepository,
	ledger repository.DeliveryLedger,
	notifier Notifier,
	outbox Outbox,
	location *time.Location,
	logger *zap.Logger,
) *Deliverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &Deliverer{
		tasks:    tasks,
		users:    users,
		ledger:   ledger,
		notifier: notifier,
		outbox:   outbox,
		location: location,
		logger:   logger,
	}
}

// Fire re-reads the task and notifies its owner unless the task is gone or
// done, or this instant was already delivered.
func (d *Deliverer) Fire(ctx context.Context, job domain.Job) {
	log := d.logger.With(zap.Stringer("job", job.Key), zap.String("owner_id", job.OwnerID))

	task, err := d.tasks.Get(ctx, job.Key.TaskID, job.OwnerID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			log.Debug("reminder skipped, task gone")
			return
		}
		log.Error("reminder skipped, task lookup failed", zap.Error(err))
		return
	}
	if !task.IsActive() {
		log.Debug("reminder skipped, task done")
		return
	}

	if d.ledger != nil {
		claimed, err := d.ledger.Claim(ctx, job.Key, job.FireAt)
		if err != nil {
			log.Warn("delivery ledger unavailable, delivering anyway", zap.Error(err))
		} else if !claimed {
			log.Debug("reminder skipped, instant already delivered")
			return
		}
	}

	n := d.Render(ctx, task, job)
	if err := d.notifier.Notify(ctx, n); err != nil {
		log.Warn("reminder delivery failed", zap.Error(err))
		if d.outbox == nil {
			return
		}
		if err := d.outbox.Enqueue(ctx, n); err != nil {
			log.Error("failed to buffer reminder", zap.Error(err))
		}
		return
	}
	log.Info("reminder delivered")
}

// Render builds the notification for task.
func (d *Deliverer) Render(ctx context.Context, task *domain.Task, job domain.Job) domain.Notification {
	loc := d.location
	if d.users != nil {
		if user, err := d.users.GetByID(ctx, task.OwnerID); err == nil {
			loc = user.Location(d.location)
		}
	}
	due := task.DueAt.In(loc).Format("2006-01-02 15:04")
	return domain.Notification{
		OwnerID: task.OwnerID,
		TaskID:  task.ID,
		Slot:    job.Key.Slot.String(),
		Title:   task.Title,
		DueAt:   task.DueAt,
		Text:    fmt.Sprintf("Reminder: %s\nDue: %s", task.Title, due),
		Actions: []string{
			domain.ActionDone.CallbackData(task.ID),
			domain.ActionSnooze.CallbackData(task.ID),
		},
	}
}
