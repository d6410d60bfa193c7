// Package scheduler owns every pending reminder job of the process.
//
// Jobs are keyed by domain.JobKey. Scheduling an existing key replaces the
// previous job; the replaced job can no longer deliver even if its timer is
// already running. Jobs whose fire instant has passed fire immediately.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/taskbot/domain"
)

// Handler receives fired jobs. It runs on its own goroutine.
type Handler func(ctx context.Context, job domain.Job)

type entry struct {
	job    domain.Job
	gen    uint64
	cronID cron.EntryID
	inCron bool
}

// Scheduler is a one-shot job scheduler on top of robfig/cron.
type Scheduler struct {
	cron        *cron.Cron
	handler     Handler
	logger      *zap.Logger
	now         func() time.Time
	fireTimeout time.Duration

	mu      sync.Mutex
	jobs    map[domain.JobKey]*entry
	gen     uint64
	wg      sync.WaitGroup
	stopped bool
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source used to decide immediate firing.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFireTimeout bounds how long a single handler invocation may take.
func WithFireTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.fireTimeout = d
		}
	}
}

// WithLocation sets the zone the cron engine evaluates instants in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.cron = newCron(s.logger, loc)
		}
	}
}

// New creates a scheduler that delivers fired jobs to handler.
func New(handler Handler, logger *zap.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		handler:     handler,
		logger:      logger,
		now:         time.Now,
		fireTimeout: 15 * time.Second,
		jobs:        make(map[domain.JobKey]*entry),
		cron:        newCron(logger, time.Local),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newCron(logger *zap.Logger, loc *time.Location) *cron.Cron {
	cl := cronLogger{logger: logger.Named("cron")}
	return cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)
}

// Start launches the cron engine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("reminder scheduler started")
}

// Stop halts the engine and waits for in-flight handlers or ctx expiry.
// Pending jobs are dropped; they are re-derived from the task store on the next start.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	s.stopped = true
	pending := len(s.jobs)
	s.mu.Unlock()

	stopCtx := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-stopCtx.Done()
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	s.logger.Info("reminder scheduler stopped", zap.Int("pending_jobs", pending))
}

// Schedule registers job, atomically replacing any job with the same key.
func (s *Scheduler) Schedule(job domain.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.logger.Warn("schedule ignored after stop", zap.Stringer("job", job.Key))
		return
	}

	replaced := s.removeLocked(job.Key)

	s.gen++
	e := &entry{job: job, gen: s.gen}
	s.jobs[job.Key] = e

	key, gen := job.Key, e.gen
	if !job.FireAt.After(s.now()) {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.fire(key, gen)
		}()
		s.logger.Debug("reminder due, firing now",
			zap.Stringer("job", key),
			zap.Time("fire_at", job.FireAt),
			zap.Bool("replaced", replaced))
		return
	}

	e.cronID = s.cron.Schedule(&oneShot{at: job.FireAt}, cron.FuncJob(func() {
		s.wg.Add(1)
		defer s.wg.Done()
		s.fire(key, gen)
	}))
	e.inCron = true
	s.logger.Debug("reminder scheduled",
		zap.Stringer("job", key),
		zap.Time("fire_at", job.FireAt),
		zap.Bool("replaced", replaced))
}

// Cancel removes the job with key. It reports whether a job was removed.
func (s *Scheduler) Cancel(key domain.JobKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(key)
}

// CancelAllForTask removes every job of taskID and returns how many were removed.
func (s *Scheduler) CancelAllForTask(taskID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, slot := range domain.AllSlots() {
		if s.removeLocked(domain.JobKey{TaskID: taskID, Slot: slot}) {
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("reminders cancelled", zap.String("task_id", taskID), zap.Int("count", removed))
	}
	return removed
}

// Pending returns the jobs still waiting to fire for taskID, ordered by slot.
func (s *Scheduler) Pending(taskID string) []domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Job
	for _, slot := range domain.AllSlots() {
		if e, ok := s.jobs[domain.JobKey{TaskID: taskID, Slot: slot}]; ok {
			out = append(out, e.job)
		}
	}
	return out
}

// Len returns the number of pending jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *Scheduler) fire(key domain.JobKey, gen uint64) {
	s.mu.Lock()
	e, ok := s.jobs[key]
	if !ok || e.gen != gen {
		s.mu.Unlock()
		return
	}
	s.removeLocked(key)
	job := e.job
	s.mu.Unlock()

	if s.handler == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.fireTimeout)
	defer cancel()
	s.handler(ctx, job)
}

// removeLocked drops key from the tables and the cron engine. Callers hold s.mu.
func (s *Scheduler) removeLocked(key domain.JobKey) bool {
	e, ok := s.jobs[key]
	if !ok {
		return false
	}
	delete(s.jobs, key)
	if e.inCron {
		s.cron.Remove(e.cronID)
	}
	return true
}

// oneShot is a cron.Schedule that yields its instant once. Cron asks for the
// next activation when the entry is added and again after every run, so the
// second answer is the zero time, which cron never activates.
type oneShot struct {
	at    time.Time
	asked atomic.Bool
}

func (o *oneShot) Next(time.Time) time.Time {
	if o.asked.Swap(true) {
		return time.Time{}
	}
	return o.at
}
