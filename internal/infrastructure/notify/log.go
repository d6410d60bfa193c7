package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/taskbot/domain"
)

// Log writes notifications to the logger; used when no webhook is configured.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, n domain.Notification) error {
	l.logger.Info("reminder",
		zap.String("owner_id", n.OwnerID),
		zap.String("task_id", n.TaskID),
		zap.String("slot", n.Slot),
		zap.String("text", n.Text),
		zap.Strings("actions", n.Actions))
	return nil
}
