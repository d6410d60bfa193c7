package reminder

import (
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskbot/domain"
)

// Offsets returns the minutes-before-due profile of an urgency class.
// Unknown classes use the default profile.
func Offsets(u domain.UrgencyClass) []int {
	switch domain.ParseUrgency(string(u)) {
	case domain.UrgencyEvent:
		return []int{1440, 120, 30}
	case domain.UrgencyMeeting:
		return []int{60, 15}
	case domain.UrgencyErrand:
		return []int{30}
	default:
		return []int{30}
	}
}

// PrimaryOffset is the first offset of the profile, persisted with the task.
func PrimaryOffset(u domain.UrgencyClass) int {
	return Offsets(u)[0]
}

// JobScheduler is the part of the reminder scheduler the planner drives.
type JobScheduler interface {
	Schedule(job domain.Job)
	CancelAllForTask(taskID string) int
}

// Planner expands tasks into scheduler jobs.
type Planner struct {
	scheduler   JobScheduler
	snoozeAfter time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// PlannerOption customizes a Planner.
type PlannerOption func(*Planner)

func WithSnoozeAfter(d time.Duration) PlannerOption {
	return func(p *Planner) {
		if d > 0 {
			p.snoozeAfter = d
		}
	}
}

func WithClock(now func() time.Time) PlannerOption {
	return func(p *Planner) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPlanner(scheduler JobScheduler, logger *zap.Logger, opts ...PlannerOption) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Planner{
		scheduler:   scheduler,
		snoozeAfter: 30 * time.Minute,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan schedules one job per offset of the task's profile. Offsets already in
// the past are handed to the scheduler as-is and fire immediately.
func (p *Planner) Plan(task *domain.Task) []domain.Job {
	if !task.IsActive() {
		return nil
	}
	offsets := Offsets(task.Urgency)
	jobs := make([]domain.Job, 0, len(offsets))
	for i, minutes := range offsets {
		slot, ok := domain.SlotForIndex(i)
		if !ok {
			break
		}
		job := domain.Job{
			Key:     domain.JobKey{TaskID: task.ID, Slot: slot},
			OwnerID: task.OwnerID,
			FireAt:  task.DueAt.Add(-time.Duration(minutes) * time.Minute),
		}
		p.scheduler.Schedule(job)
		jobs = append(jobs, job)
	}
	p.logger.Info("reminders planned",
		zap.String("task_id", task.ID),
		zap.String("urgency", string(task.Urgency)),
		zap.Int("jobs", len(jobs)))
	return jobs
}

// Snooze schedules the ad-hoc snooze job; pending profile offsets are kept.
func (p *Planner) Snooze(task *domain.Task) domain.Job {
	job := domain.Job{
		Key:     domain.JobKey{TaskID: task.ID, Slot: domain.SlotSnooze},
		OwnerID: task.OwnerID,
		FireAt:  p.now().Add(p.snoozeAfter),
	}
	p.scheduler.Schedule(job)
	p.logger.Info("reminder snoozed", zap.String("task_id", task.ID), zap.Time("fire_at", job.FireAt))
	return job
}

// Cancel drops every job of the task.
func (p *Planner) Cancel(taskID string) int {
	return p.scheduler.CancelAllForTask(taskID)
}
