package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/fastygo/taskbot/domain"
	"github.com/fastygo/taskbot/internal/infrastructure/buffer"
	"github.com/fastygo/taskbot/repository/memory"
)

type stubNotifier struct {
	err       error
	delivered []domain.Notification
}

func (s *stubNotifier) Notify(_ context.Context, n domain.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.delivered = append(s.delivered, n)
	return nil
}

func newOutbox(t *testing.T) *buffer.Store {
	t.Helper()
	store, err := buffer.Open(filepath.Join(t.TempDir(), "outbox.db"), "")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestDrainRedeliversActiveTasks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tasks := memory.NewTaskRepository()
	active, _ := tasks.Add(ctx, &domain.Task{OwnerID: "u1", Title: "active", DueAt: time.Now().Add(time.Hour)})
	done, _ := tasks.Add(ctx, &domain.Task{OwnerID: "u1", Title: "done", DueAt: time.Now().Add(time.Hour)})
	_ = tasks.MarkDone(ctx, done.ID)

	store := newOutbox(t)
	_ = store.Enqueue(ctx, domain.Notification{OwnerID: "u1", TaskID: active.ID})
	_ = store.Enqueue(ctx, domain.Notification{OwnerID: "u1", TaskID: done.ID})
	_ = store.Enqueue(ctx, domain.Notification{OwnerID: "u1", TaskID: "deleted"})

	notifier := &stubNotifier{}
	op := NewOutboxProcessor(store, notifier, tasks, nil, nil, ProcessorConfig{})
	if err := op.Drain(ctx); err != nil {
		t.Fatalf("Drain returned error: %v", err)
	}

	if len(notifier.delivered) != 1 || notifier.delivered[0].TaskID != active.ID {
		t.Fatalf("expected only the active task redelivered, got %+v", notifier.delivered)
	}
	if op.Size() != 0 {
		t.Fatalf("outbox must be empty, size=%d", op.Size())
	}
}

func TestDrainGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newOutbox(t)
	_ = store.Enqueue(ctx, domain.Notification{OwnerID: "u1", TaskID: "t1"})

	op := NewOutboxProcessor(store, &stubNotifier{err: errors.New("webhook down")}, nil, nil, nil, ProcessorConfig{MaxRetries: 2})

	if err := op.Drain(ctx); err != nil {
		t.Fatalf("Drain returned error: %v", err)
	}
	if op.Size() != 1 {
		t.Fatalf("failed item must stay parked after the first attempt")
	}
	if err := op.Drain(ctx); err != nil {
		t.Fatalf("Drain returned error: %v", err)
	}
	if op.Size() != 0 {
		t.Fatalf("item must be dropped after max retries, size=%d", op.Size())
	}
}

type offline struct{}

func (offline) IsOnline() bool { return false }

func TestDrainSkipsWhileOffline(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newOutbox(t)
	_ = store.Enqueue(ctx, domain.Notification{OwnerID: "u1", TaskID: "t1"})

	notifier := &stubNotifier{}
	op := NewOutboxProcessor(store, notifier, nil, offline{}, nil, ProcessorConfig{})
	if err := op.Drain(ctx); err != nil {
		t.Fatalf("Drain returned error: %v", err)
	}
	if len(notifier.delivered) != 0 || op.Size() != 1 {
		t.Fatalf("offline drain must leave the outbox untouched")
	}
}
