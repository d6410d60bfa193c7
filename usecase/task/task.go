package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskbot/domain"
	"github.com/fastygo/taskbot/pkg/logger"
	"github.com/fastygo/taskbot/repository"
	"github.com/fastygo/taskbot/usecase/draft"
	"github.com/fastygo/taskbot/usecase/reminder"
)

// Classifier turns free text into a structured, untrusted intent.
type Classifier interface {
	Classify(ctx context.Context, req domain.ClassifyRequest) (*domain.Classification, error)
}

// Planner schedules and cancels the reminders of a task.
type Planner interface {
	Plan(task *domain.Task) []domain.Job
	Snooze(task *domain.Task) domain.Job
	Cancel(taskID string) int
}

// UseCase is the single task-creation and lifecycle pipeline shared by every
// entry point.
type UseCase struct {
	tasks      repository.TaskRepository
	users      repository.UserRepository
	classifier Classifier
	drafts     *draft.Machine
	planner    Planner
	location   *time.Location
	now        func() time.Time
	logger     *zap.Logger
}

// Option customizes the UseCase.
type Option func(*UseCase)

func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		if now != nil {
			uc.now = now
		}
	}
}

// WithLocation sets the zone used for owners without their own.
func WithLocation(loc *time.Location) Option {
	return func(uc *UseCase) {
		if loc != nil {
			uc.location = loc
		}
	}
}

func New(
	tasks repository.TaskRepository,
	users repository.UserRepository,
	classifier Classifier,
	drafts *draft.Machine,
	planner Planner,
	logger *zap.Logger,
	opts ...Option,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	uc := &UseCase{
		tasks:      tasks,
		users:      users,
		classifier: classifier,
		drafts:     drafts,
		planner:    planner,
		location:   time.UTC,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// HandleMessage processes one free-text message from ownerID.
func (uc *UseCase) HandleMessage(ctx context.Context, ownerID, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if ownerID == "" || text == "" {
		return Reply{}, domain.ErrInvalidPayload
	}
	log := logger.WithRequestID(ctx, uc.logger).With(zap.String("owner_id", ownerID))

	loc, err := uc.ownerLocation(ctx, ownerID)
	if err != nil {
		return Reply{}, err
	}

	if strings.HasPrefix(text, "/") {
		return uc.handleCommand(ctx, ownerID, text, loc)
	}

	if _, open := uc.drafts.Get(ownerID); open {
		if hour, minute, ok := draft.ParseClock(text); ok {
			return uc.resolveDraft(ctx, ownerID, hour, minute, loc)
		}
	}

	active, err := uc.tasks.ListActive(ctx, ownerID)
	if err != nil {
		return Reply{}, err
	}

	cls, err := uc.classifier.Classify(ctx, domain.ClassifyRequest{
		Text:        text,
		Now:         uc.now(),
		Location:    loc,
		ActiveTasks: domain.Summarize(active),
	})
	if err != nil {
		if errors.Is(err, domain.ErrMalformedIntent) {
			log.Info("classification malformed", zap.Error(err))
			return restateReply(), nil
		}
		log.Warn("classification failed", zap.Error(err))
		return retryLaterReply(), nil
	}
	if cls == nil {
		return restateReply(), nil
	}

	switch domain.IntentKind(strings.ToLower(strings.TrimSpace(cls.Intent))) {
	case domain.IntentCreate:
		return uc.handleCreate(ctx, ownerID, text, cls, loc)
	case domain.IntentComplete:
		return uc.applyToTasks(ctx, ownerID, cls.TaskIDs, uc.completeReply)
	case domain.IntentDelete:
		return uc.applyToTasks(ctx, ownerID, cls.TaskIDs, uc.deleteReply)
	case domain.IntentList:
		return tasksReply(ReplyTasks, active, loc, uc.now()), nil
	default:
		if msg := strings.TrimSpace(cls.ChatResponse); msg != "" {
			return Reply{Kind: ReplyChat, Message: msg}, nil
		}
		return restateReply(), nil
	}
}

// SelectTime resolves the owner's draft with a menu choice.
func (uc *UseCase) SelectTime(ctx context.Context, ownerID, choice string) (Reply, error) {
	choice = strings.TrimSpace(choice)
	if choice == draft.ChoiceCustom {
		if _, ok := uc.drafts.AskCustom(ownerID); !ok {
			return Reply{}, domain.ErrNoDraft
		}
		return Reply{
			Kind:    ReplyAwaitingCustomTime,
			Message: "Type the time as HH:MM, for example 16:30.",
		}, nil
	}
	hour, minute, ok := draft.ParseClock(choice)
	if !ok {
		return Reply{}, domain.ErrInvalidTime
	}
	loc, err := uc.ownerLocation(ctx, ownerID)
	if err != nil {
		return Reply{}, err
	}
	return uc.resolveDraft(ctx, ownerID, hour, minute, loc)
}

// Complete marks the task done and drops its pending reminders.
func (uc *UseCase) Complete(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	task, err := uc.tasks.Get(ctx, taskID, ownerID)
	if err != nil {
		return nil, err
	}
	if err := uc.tasks.MarkDone(ctx, task.ID); err != nil {
		return nil, err
	}
	uc.planner.Cancel(task.ID)
	task.IsDone = true
	uc.logger.Info("task completed", zap.String("task_id", task.ID), zap.String("owner_id", ownerID))
	return task, nil
}

// Reopen marks a done task active again and plans its reminders anew.
func (uc *UseCase) Reopen(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	task, err := uc.tasks.Get(ctx, taskID, ownerID)
	if err != nil {
		return nil, err
	}
	if !task.IsDone {
		return task, nil
	}
	if err := uc.tasks.MarkUndone(ctx, task.ID); err != nil {
		return nil, err
	}
	task.IsDone = false
	uc.planner.Plan(task)
	return task, nil
}

// Snooze schedules one more reminder for an active task.
func (uc *UseCase) Snooze(ctx context.Context, ownerID, taskID string) (*domain.Task, domain.Job, error) {
	task, err := uc.tasks.Get(ctx, taskID, ownerID)
	if err != nil {
		return nil, domain.Job{}, err
	}
	if task.IsDone {
		return nil, domain.Job{}, domain.NewError(domain.ErrCodeConflict, "task already completed")
	}
	return task, uc.planner.Snooze(task), nil
}

// Delete removes the task and its pending reminders.
func (uc *UseCase) Delete(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	task, err := uc.tasks.Get(ctx, taskID, ownerID)
	if err != nil {
		return nil, err
	}
	if err := uc.tasks.Delete(ctx, task.ID, ownerID); err != nil {
		return nil, err
	}
	uc.planner.Cancel(task.ID)
	uc.logger.Info("task deleted", zap.String("task_id", task.ID), zap.String("owner_id", ownerID))
	return task, nil
}

func (uc *UseCase) ListActive(ctx context.Context, ownerID string) ([]domain.Task, error) {
	return uc.tasks.ListActive(ctx, ownerID)
}

func (uc *UseCase) ListDone(ctx context.Context, ownerID string) ([]domain.Task, error) {
	return uc.tasks.ListDone(ctx, ownerID, repository.DoneListLimit)
}

// ClearDone removes every completed task of the owner.
func (uc *UseCase) ClearDone(ctx context.Context, ownerID string) (int64, error) {
	return uc.tasks.ClearDone(ctx, ownerID)
}

// Location returns the zone due times of ownerID are expressed in.
func (uc *UseCase) Location(ctx context.Context, ownerID string) *time.Location {
	loc, err := uc.ownerLocation(ctx, ownerID)
	if err != nil {
		return uc.location
	}
	return loc
}

// CompleteReply runs Complete and renders the outcome.
func (uc *UseCase) CompleteReply(ctx context.Context, ownerID, taskID string) (Reply, error) {
	return uc.completeReply(ctx, ownerID, taskID)
}

// SnoozeReply runs Snooze and renders the outcome.
func (uc *UseCase) SnoozeReply(ctx context.Context, ownerID, taskID string) (Reply, error) {
	task, job, err := uc.Snooze(ctx, ownerID, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return notFoundReply(), nil
		}
		return Reply{}, err
	}
	minutes := int(job.FireAt.Sub(uc.now()).Round(time.Minute) / time.Minute)
	return Reply{
		Kind:    ReplySnoozed,
		Task:    task,
		Message: fmt.Sprintf("%s: I will remind you again in %d min.", task.Title, minutes),
	}, nil
}

// DeleteReply runs Delete and renders the outcome.
func (uc *UseCase) DeleteReply(ctx context.Context, ownerID, taskID string) (Reply, error) {
	return uc.deleteReply(ctx, ownerID, taskID)
}

func (uc *UseCase) completeReply(ctx context.Context, ownerID, taskID string) (Reply, error) {
	task, err := uc.Complete(ctx, ownerID, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return notFoundReply(), nil
		}
		return Reply{}, err
	}
	return Reply{Kind: ReplyCompleted, Task: task, Message: fmt.Sprintf("%s: done!", task.Title)}, nil
}

func (uc *UseCase) deleteReply(ctx context.Context, ownerID, taskID string) (Reply, error) {
	task, err := uc.Delete(ctx, ownerID, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return notFoundReply(), nil
		}
		return Reply{}, err
	}
	return Reply{Kind: ReplyDeleted, Task: task, Message: fmt.Sprintf("%s: deleted.", task.Title)}, nil
}

func (uc *UseCase) applyToTasks(
	ctx context.Context,
	ownerID string,
	ids []string,
	apply func(ctx context.Context, ownerID, taskID string) (Reply, error),
) (Reply, error) {
	if len(ids) == 0 {
		return restateReply(), nil
	}
	var (
		last     Reply
		messages []string
		handled  int
	)
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		reply, err := apply(ctx, ownerID, id)
		if err != nil {
			return Reply{}, err
		}
		if reply.Kind == ReplyNotFound {
			continue
		}
		handled++
		last = reply
		messages = append(messages, reply.Message)
	}
	if handled == 0 {
		return notFoundReply(), nil
	}
	last.Message = strings.Join(messages, "\n")
	if handled > 1 {
		last.Task = nil
	}
	return last, nil
}

func (uc *UseCase) handleCommand(ctx context.Context, ownerID, text string, loc *time.Location) (Reply, error) {
	command := strings.Fields(text)[0]
	switch {
	case command == "/tasks":
		tasks, err := uc.ListActive(ctx, ownerID)
		if err != nil {
			return Reply{}, err
		}
		return tasksReply(ReplyTasks, tasks, loc, uc.now()), nil
	case command == "/done":
		tasks, err := uc.ListDone(ctx, ownerID)
		if err != nil {
			return Reply{}, err
		}
		return tasksReply(ReplyDoneTasks, tasks, loc, uc.now()), nil
	case command == "/clear":
		n, err := uc.ClearDone(ctx, ownerID)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Kind: ReplyCleared, Count: n, Message: "Completed tasks removed."}, nil
	case strings.HasPrefix(command, "/del_"):
		return uc.completeReply(ctx, ownerID, strings.TrimPrefix(command, "/del_"))
	default:
		return Reply{Kind: ReplyChat, Message: "Unknown command. Use /tasks, /done or /clear."}, nil
	}
}

func (uc *UseCase) handleCreate(ctx context.Context, ownerID, text string, cls *domain.Classification, loc *time.Location) (Reply, error) {
	title := strings.TrimSpace(cls.Title)
	due, hasTime, err := parseDueDate(cls.DueDate, loc)
	if title == "" || err != nil {
		uc.logger.Info("create intent rejected",
			zap.String("owner_id", ownerID),
			zap.Bool("missing_title", title == ""),
			zap.String("due_date", cls.DueDate))
		return restateReply(), nil
	}

	timeSpecified := hasTime
	if cls.TimeSpecified != nil {
		timeSpecified = *cls.TimeSpecified && hasTime
	}

	category := domain.ParseCategory(cls.Category)
	urgency := domain.ParseUrgency(cls.UrgencyClass)

	if !timeSpecified {
		d := domain.PendingDraft{
			OwnerID:      ownerID,
			Title:        title,
			Date:         time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, loc),
			Category:     category,
			Urgency:      urgency,
			OriginalText: text,
		}
		uc.drafts.Open(d)
		return awaitingTimeReply(d, draft.Choices()), nil
	}

	task, err := uc.create(ctx, &domain.Task{
		OwnerID:      ownerID,
		Title:        title,
		DueAt:        due,
		Category:     category,
		Urgency:      urgency,
		OriginalText: text,
	})
	if err != nil {
		return Reply{}, err
	}
	return createdReply(task, loc), nil
}

func (uc *UseCase) resolveDraft(ctx context.Context, ownerID string, hour, minute int, loc *time.Location) (Reply, error) {
	d, due, err := uc.drafts.Resolve(ownerID, hour, minute)
	if err != nil {
		return Reply{}, err
	}
	task, err := uc.create(ctx, &domain.Task{
		OwnerID:      ownerID,
		Title:        d.Title,
		DueAt:        due,
		Category:     d.Category,
		Urgency:      d.Urgency,
		OriginalText: d.OriginalText,
	})
	if err != nil {
		uc.drafts.Restore(d)
		return Reply{}, err
	}
	return createdReply(task, loc), nil
}

func (uc *UseCase) create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	task.Normalize()
	task.RemindBefore = reminder.PrimaryOffset(task.Urgency)
	created, err := uc.tasks.Add(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("add task: %w", err)
	}
	uc.planner.Plan(created)
	uc.logger.Info("task created",
		zap.String("task_id", created.ID),
		zap.String("owner_id", created.OwnerID),
		zap.Time("due_at", created.DueAt),
		zap.String("urgency", string(created.Urgency)))
	return created, nil
}

func (uc *UseCase) ownerLocation(ctx context.Context, ownerID string) (*time.Location, error) {
	if uc.users == nil {
		return uc.location, nil
	}
	user, err := uc.users.Ensure(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return user.Location(uc.location), nil
}

var dueLayouts = []struct {
	layout  string
	hasTime bool
}{
	{"2006-01-02 15:04", true},
	{"2006-01-02T15:04", true},
	{"2006-01-02 15:04:05", true},
	{"2006-01-02", false},
}

// parseDueDate reads the classifier's due date in loc.
func parseDueDate(raw string, loc *time.Location) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, domain.ErrMalformedIntent
	}
	for _, l := range dueLayouts {
		if t, err := time.ParseInLocation(l.layout, raw, loc); err == nil {
			return t, l.hasTime, nil
		}
	}
	return time.Time{}, false, domain.WrapError(domain.ErrCodeInvalid, "unparseable due date", fmt.Errorf("%q", raw))
}
