package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fastygo/taskbot/domain"
)

type recorder struct {
	mu    sync.Mutex
	fired []domain.Job
	ch    chan domain.Job
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan domain.Job, 32)}
}

func (r *recorder) handle(_ context.Context, job domain.Job) {
	r.mu.Lock()
	r.fired = append(r.fired, job)
	r.mu.Unlock()
	r.ch <- job
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

func (r *recorder) wait(t *testing.T, timeout time.Duration) domain.Job {
	t.Helper()
	select {
	case job := <-r.ch:
		return job
	case <-time.After(timeout):
		t.Fatalf("no job fired within %s", timeout)
		return domain.Job{}
	}
}

func newStartedScheduler(t *testing.T, rec *recorder) *Scheduler {
	t.Helper()
	s := New(rec.handle, nil)
	s.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	})
	return s
}

func TestSchedulePastInstantFiresImmediately(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	s := newStartedScheduler(t, rec)

	key := domain.JobKey{TaskID: "t1", Slot: domain.SlotFirst}
	s.Schedule(domain.Job{Key: key, OwnerID: "u1", FireAt: time.Now().Add(-time.Hour)})

	job := rec.wait(t, 2*time.Second)
	if job.Key != key || job.OwnerID != "u1" {
		t.Fatalf("unexpected job fired: %+v", job)
	}
	if s.Len() != 0 {
		t.Fatalf("expected fired job to leave the table, %d pending", s.Len())
	}
}

func TestScheduleFutureInstantStaysPending(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	s := newStartedScheduler(t, rec)

	fireAt := time.Now().Add(time.Hour)
	s.Schedule(domain.Job{Key: domain.JobKey{TaskID: "t1", Slot: domain.SlotSecond}, FireAt: fireAt})

	pending := s.Pending("t1")
	if len(pending) != 1 || !pending[0].FireAt.Equal(fireAt) {
		t.Fatalf("expected one pending job at %s, got %+v", fireAt, pending)
	}
	time.Sleep(50 * time.Millisecond)
	if rec.count() != 0 {
		t.Fatalf("future job fired early")
	}
}

func TestScheduleFiresAtInstant(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	s := newStartedScheduler(t, rec)

	fireAt := time.Now().Add(1500 * time.Millisecond)
	s.Schedule(domain.Job{Key: domain.JobKey{TaskID: "t1", Slot: domain.SlotFirst}, FireAt: fireAt})

	rec.wait(t, 4*time.Second)
	if time.Now().Before(fireAt) {
		t.Fatalf("job fired before its instant")
	}
}

func TestScheduleSameKeyReplacesWithoutDoubleDelivery(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	s := newStartedScheduler(t, rec)

	key := domain.JobKey{TaskID: "t1", Slot: domain.SlotFirst}
	s.Schedule(domain.Job{Key: key, FireAt: time.Now().Add(time.Hour)})
	s.Schedule(domain.Job{Key: key, FireAt: time.Now().Add(time.Second)})
	s.Schedule(domain.Job{Key: key, FireAt: time.Now().Add(time.Second)})

	if got := len(s.Pending("t1")); got != 1 {
		t.Fatalf("expected a single pending job, got %d", got)
	}

	rec.wait(t, 4*time.Second)
	time.Sleep(1500 * time.Millisecond)
	if got := rec.count(); got != 1 {
		t.Fatalf("expected exactly one delivery, got %d", got)
	}
}

func TestReplacedImmediateJobDoesNotDeliver(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	s := New(rec.handle, nil)

	key := domain.JobKey{TaskID: "t1", Slot: domain.SlotSnooze}
	s.mu.Lock()
	s.gen = 41
	s.jobs[key] = &entry{job: domain.Job{Key: key}, gen: 42}
	s.mu.Unlock()

	s.fire(key, 41)
	if rec.count() != 0 {
		t.Fatalf("stale generation must not deliver")
	}
	if s.Len() != 1 {
		t.Fatalf("stale fire must not remove the current job")
	}
}

func TestCancelAllForTask(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	s := newStartedScheduler(t, rec)

	future := time.Now().Add(time.Hour)
	for _, slot := range domain.AllSlots() {
		s.Schedule(domain.Job{Key: domain.JobKey{TaskID: "t1", Slot: slot}, FireAt: future})
	}
	s.Schedule(domain.Job{Key: domain.JobKey{TaskID: "t2", Slot: domain.SlotFirst}, FireAt: future})

	if got := s.CancelAllForTask("t1"); got != 4 {
		t.Fatalf("expected 4 cancelled jobs, got %d", got)
	}
	if got := len(s.Pending("t1")); got != 0 {
		t.Fatalf("expected no jobs left for t1, got %d", got)
	}
	if got := len(s.Pending("t2")); got != 1 {
		t.Fatalf("other tasks must keep their jobs, got %d", got)
	}
	if got := s.CancelAllForTask("t1"); got != 0 {
		t.Fatalf("second cancel must be a no-op, got %d", got)
	}
}

func TestCancelMissingJobIsNoop(t *testing.T) {
	t.Parallel()

	s := New(nil, nil)
	if s.Cancel(domain.JobKey{TaskID: "missing", Slot: domain.SlotFirst}) {
		t.Fatalf("cancel of an absent job must report false")
	}
}

func TestScheduleAfterStopIsIgnored(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	s := New(rec.handle, nil)
	s.Start()
	s.Stop(context.Background())

	s.Schedule(domain.Job{Key: domain.JobKey{TaskID: "t1"}, FireAt: time.Now().Add(-time.Minute)})
	time.Sleep(50 * time.Millisecond)
	if rec.count() != 0 || s.Len() != 0 {
		t.Fatalf("stopped scheduler must not accept jobs")
	}
}
