package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/taskbot/domain"
	"github.com/fastygo/taskbot/internal/infrastructure/buffer"
)

// Notifier delivers a rendered reminder.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// TaskReader re-reads a task before a parked reminder is redelivered.
type TaskReader interface {
	Get(ctx context.Context, id, ownerID string) (*domain.Task, error)
}

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls how frequently the outbox is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	MaxAge     time.Duration
}

// OutboxProcessor retries reminders whose first delivery failed.
type OutboxProcessor struct {
	store    *buffer.Store
	notifier Notifier
	tasks    TaskReader
	monitor  ConnectionHealth
	logger   *zap.Logger
	cron     *cron.Cron
	cfg      ProcessorConfig
}

func NewOutboxProcessor(
	store *buffer.Store,
	notifier Notifier,
	tasks TaskReader,
	monitor ConnectionHealth,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *OutboxProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	op := &OutboxProcessor{
		store:    store,
		notifier: notifier,
		tasks:    tasks,
		monitor:  monitor,
		logger:   logger,
		cfg:      cfg,
		cron:     cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = op.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := op.Drain(ctx); err != nil {
			op.logger.Error("outbox drain failed", zap.Error(err))
		}
	})

	return op
}

// Start launches the cron scheduler.
func (op *OutboxProcessor) Start() {
	if op == nil || op.cron == nil {
		return
	}
	op.cron.Start()
	op.logger.Info("outbox processor started")
}

// Stop gracefully stops the scheduler.
func (op *OutboxProcessor) Stop(ctx context.Context) {
	if op == nil || op.cron == nil {
		return
	}
	stopCtx := op.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	op.logger.Info("outbox processor stopped")
}

// Drain redelivers one batch of parked reminders synchronously.
func (op *OutboxProcessor) Drain(ctx context.Context) error {
	if op == nil || op.store == nil {
		return nil
	}
	if op.monitor != nil && !op.monitor.IsOnline() {
		op.logger.Debug("skipping outbox drain (offline)")
		return nil
	}
	if err := op.store.Cleanup(time.Now().Add(-op.cfg.MaxAge)); err != nil {
		op.logger.Warn("outbox cleanup failed", zap.Error(err))
	}

	items, err := op.store.GetBatch(op.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		n := item.Notification
		log := op.logger.With(
			zap.String("item_id", item.ID),
			zap.String("task_id", n.TaskID),
			zap.String("slot", n.Slot))

		if !op.stillActive(ctx, n) {
			log.Debug("dropping parked reminder for inactive task")
			_ = op.store.Remove(item)
			continue
		}

		if err := op.notifier.Notify(ctx, n); err != nil {
			log.Error("failed to redeliver reminder", zap.Error(err))

			if item.Retries+1 >= op.cfg.MaxRetries {
				log.Warn("dropping parked reminder (max retries reached)")
				_ = op.store.Remove(item)
				continue
			}
			if err := op.store.Requeue(item, err); err != nil {
				log.Error("failed to requeue reminder", zap.Error(err))
			}
			continue
		}

		if err := op.store.Remove(item); err != nil {
			log.Warn("failed to purge delivered reminder", zap.Error(err))
		}
	}
	return nil
}

// Size returns the number of parked reminders.
func (op *OutboxProcessor) Size() int {
	if op == nil || op.store == nil {
		return 0
	}
	size, err := op.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (op *OutboxProcessor) stillActive(ctx context.Context, n domain.Notification) bool {
	if op.tasks == nil {
		return true
	}
	task, err := op.tasks.Get(ctx, n.TaskID, n.OwnerID)
	if err != nil {
		// Only a definite absence drops the item; storage errors keep it for the next pass.
		return !errors.Is(err, domain.ErrTaskNotFound)
	}
	return task.IsActive()
}
