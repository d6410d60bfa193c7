package reminder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskbot/domain"
)

// ActiveTaskSource lists every open task across owners.
type ActiveTaskSource interface {
	ListAllActive(ctx context.Context) ([]domain.Task, error)
}

// RecoveryOutcome says what recovery decided for one task.
type RecoveryOutcome string

const (
	OutcomeScheduled RecoveryOutcome = "scheduled"
	OutcomeDebounced RecoveryOutcome = "debounced"
	OutcomeMissed    RecoveryOutcome = "missed"
)

// RecoveryDecision is the plan for one task.
type RecoveryDecision struct {
	Task    domain.Task
	Outcome RecoveryOutcome
	Jobs    []domain.Job
}

// RecoveryReport summarizes a recovery pass.
type RecoveryReport struct {
	Decisions []RecoveryDecision
	Scheduled int
	Debounced int
	Missed    int
}

// Recovery rebuilds scheduler jobs from the task store on process start.
type Recovery struct {
	tasks      ActiveTaskSource
	scheduler  JobScheduler
	debounce   time.Duration
	allOffsets bool
	now        func() time.Time
	logger     *zap.Logger
}

// RecoveryOption customizes Recovery.
type RecoveryOption func(*Recovery)

// WithDebounce sets the delay for reminders whose instant passed while offline.
func WithDebounce(d time.Duration) RecoveryOption {
	return func(r *Recovery) {
		if d > 0 {
			r.debounce = d
		}
	}
}

// WithAllOffsets restores every still-future profile offset, not only the primary one.
func WithAllOffsets(enabled bool) RecoveryOption {
	return func(r *Recovery) {
		r.allOffsets = enabled
	}
}

func WithRecoveryClock(now func() time.Time) RecoveryOption {
	return func(r *Recovery) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRecovery(tasks ActiveTaskSource, scheduler JobScheduler, logger *zap.Logger, opts ...RecoveryOption) *Recovery {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recovery{
		tasks:     tasks,
		scheduler: scheduler,
		debounce:  10 * time.Second,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Plan computes the recovery decisions without touching the scheduler.
func (r *Recovery) Plan(ctx context.Context) (RecoveryReport, error) {
	tasks, err := r.tasks.ListAllActive(ctx)
	if err != nil {
		return RecoveryReport{}, fmt.Errorf("list active tasks: %w", err)
	}

	now := r.now()
	var report RecoveryReport
	for _, task := range tasks {
		if task.IsDone {
			continue
		}
		decision := r.decide(task, now)
		switch decision.Outcome {
		case OutcomeScheduled:
			report.Scheduled++
		case OutcomeDebounced:
			report.Debounced++
		case OutcomeMissed:
			report.Missed++
		}
		report.Decisions = append(report.Decisions, decision)
	}
	return report, nil
}

// Run plans recovery and installs the resulting jobs.
func (r *Recovery) Run(ctx context.Context) (RecoveryReport, error) {
	report, err := r.Plan(ctx)
	if err != nil {
		return report, err
	}
	for _, decision := range report.Decisions {
		for _, job := range decision.Jobs {
			r.scheduler.Schedule(job)
		}
		if decision.Outcome == OutcomeMissed {
			r.logger.Debug("reminder missed while offline",
				zap.String("task_id", decision.Task.ID),
				zap.Time("due_at", decision.Task.DueAt))
		}
	}
	r.logger.Info("reminders recovered",
		zap.Int("tasks", len(report.Decisions)),
		zap.Int("scheduled", report.Scheduled),
		zap.Int("debounced", report.Debounced),
		zap.Int("missed", report.Missed))
	return report, nil
}

func (r *Recovery) decide(task domain.Task, now time.Time) RecoveryDecision {
	decision := RecoveryDecision{Task: task}
	if !task.DueAt.After(now) {
		decision.Outcome = OutcomeMissed
		return decision
	}

	remindBefore := task.RemindBefore
	if remindBefore <= 0 {
		remindBefore = PrimaryOffset(task.Urgency)
	}
	primary := domain.Job{
		Key:     domain.JobKey{TaskID: task.ID, Slot: domain.SlotFirst},
		OwnerID: task.OwnerID,
		FireAt:  task.DueAt.Add(-time.Duration(remindBefore) * time.Minute),
	}

	if primary.FireAt.After(now) {
		decision.Outcome = OutcomeScheduled
		decision.Jobs = append(decision.Jobs, primary)
	} else {
		primary.FireAt = now.Add(r.debounce)
		decision.Outcome = OutcomeDebounced
		decision.Jobs = append(decision.Jobs, primary)
	}

	if r.allOffsets {
		offsets := Offsets(task.Urgency)
		for i := 1; i < len(offsets); i++ {
			slot, ok := domain.SlotForIndex(i)
			if !ok {
				break
			}
			fireAt := task.DueAt.Add(-time.Duration(offsets[i]) * time.Minute)
			if !fireAt.After(now) {
				continue
			}
			decision.Jobs = append(decision.Jobs, domain.Job{
				Key:     domain.JobKey{TaskID: task.ID, Slot: slot},
				OwnerID: task.OwnerID,
				FireAt:  fireAt,
			})
		}
	}
	return decision
}
