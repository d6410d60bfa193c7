package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fastygo/taskbot/domain"
	"github.com/fastygo/taskbot/repository/memory"
	"github.com/fastygo/taskbot/usecase/draft"
)

type fakeClassifier struct {
	result *domain.Classification
	err    error
	calls  int
	last   domain.ClassifyRequest
}

func (f *fakeClassifier) Classify(_ context.Context, req domain.ClassifyRequest) (*domain.Classification, error) {
	f.calls++
	f.last = req
	return f.result, f.err
}

type fakePlanner struct {
	mu        sync.Mutex
	planned   []string
	snoozed   []string
	cancelled []string
	now       time.Time
}

func (p *fakePlanner) Plan(task *domain.Task) []domain.Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.planned = append(p.planned, task.ID)
	return []domain.Job{{Key: domain.JobKey{TaskID: task.ID, Slot: domain.SlotFirst}, OwnerID: task.OwnerID}}
}

func (p *fakePlanner) Snooze(task *domain.Task) domain.Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snoozed = append(p.snoozed, task.ID)
	return domain.Job{
		Key:     domain.JobKey{TaskID: task.ID, Slot: domain.SlotSnooze},
		OwnerID: task.OwnerID,
		FireAt:  p.now.Add(30 * time.Minute),
	}
}

func (p *fakePlanner) Cancel(taskID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, taskID)
	return 1
}

type failingTasks struct {
	*memory.TaskRepository
}

func (failingTasks) Add(context.Context, *domain.Task) (*domain.Task, error) {
	return nil, errors.New("connection refused")
}

var testNow = time.Date(2030, 3, 9, 10, 0, 0, 0, time.UTC)

type fixture struct {
	uc         *UseCase
	tasks      *memory.TaskRepository
	classifier *fakeClassifier
	planner    *fakePlanner
	drafts     *draft.Machine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tasks:      memory.NewTaskRepository(),
		classifier: &fakeClassifier{},
		planner:    &fakePlanner{now: testNow},
		drafts:     draft.New(nil),
	}
	f.uc = New(f.tasks, memory.NewUserRepository(), f.classifier, f.drafts, f.planner, nil,
		WithClock(func() time.Time { return testNow }))
	return f
}

func boolPtr(v bool) *bool { return &v }

func TestCreateWithTimePlansReminders(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.classifier.result = &domain.Classification{
		Intent:        "create",
		Title:         "Client meeting",
		DueDate:       "2030-03-10 14:00",
		Category:      "work",
		UrgencyClass:  "meeting",
		TimeSpecified: boolPtr(true),
	}

	reply, err := f.uc.HandleMessage(context.Background(), "u1", "client meeting tomorrow at 14")
	if err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}
	if reply.Kind != ReplyCreated || reply.Task == nil {
		t.Fatalf("expected created reply, got %+v", reply)
	}
	if reply.Task.RemindBefore != 60 {
		t.Fatalf("expected primary offset 60, got %d", reply.Task.RemindBefore)
	}
	if reply.Task.Category != domain.CategoryWork || reply.Task.Urgency != domain.UrgencyMeeting {
		t.Fatalf("unexpected classification mapping: %+v", reply.Task)
	}
	want := time.Date(2030, 3, 10, 14, 0, 0, 0, time.UTC)
	if !reply.Task.DueAt.Equal(want) {
		t.Fatalf("expected due %s, got %s", want, reply.Task.DueAt)
	}
	if len(f.planner.planned) != 1 || f.planner.planned[0] != reply.Task.ID {
		t.Fatalf("expected reminders planned for the task, got %v", f.planner.planned)
	}
	if f.classifier.last.Location != time.UTC || !f.classifier.last.Now.Equal(testNow) {
		t.Fatalf("classifier must receive the reference instant and zone")
	}
}

func TestDraftFlowResolvesWithChosenTime(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.classifier.result = &domain.Classification{
		Intent:        "create",
		Title:         "Dentist",
		DueDate:       "2030-03-10",
		Category:      "health",
		UrgencyClass:  "errand",
		TimeSpecified: boolPtr(false),
	}
	ctx := context.Background()

	reply, err := f.uc.HandleMessage(ctx, "u1", "dentist tomorrow")
	if err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}
	if reply.Kind != ReplyAwaitingTime {
		t.Fatalf("expected awaiting_time, got %s", reply.Kind)
	}
	if len(reply.Choices) != 5 || reply.Choices[4] != draft.ChoiceCustom {
		t.Fatalf("unexpected choices: %v", reply.Choices)
	}
	if active, _ := f.tasks.ListActive(ctx, "u1"); len(active) != 0 {
		t.Fatalf("draft must not persist a task")
	}

	reply, err = f.uc.SelectTime(ctx, "u1", "15:00")
	if err != nil {
		t.Fatalf("SelectTime returned error: %v", err)
	}
	want := time.Date(2030, 3, 10, 15, 0, 0, 0, time.UTC)
	if reply.Kind != ReplyCreated || !reply.Task.DueAt.Equal(want) {
		t.Fatalf("expected task due %s, got %+v", want, reply)
	}
	if reply.Task.Title != "Dentist" || reply.Task.Category != domain.CategoryHealth {
		t.Fatalf("draft fields lost: %+v", reply.Task)
	}
	if _, err := f.uc.SelectTime(ctx, "u1", "15:00"); !errors.Is(err, domain.ErrNoDraft) {
		t.Fatalf("expected ErrNoDraft on second selection, got %v", err)
	}
}

func TestCustomTimeTypedAsText(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.classifier.result = &domain.Classification{Intent: "create", Title: "Call mom", DueDate: "2030-03-11"}
	ctx := context.Background()

	if _, err := f.uc.HandleMessage(ctx, "u1", "call mom on tuesday"); err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}
	reply, err := f.uc.SelectTime(ctx, "u1", draft.ChoiceCustom)
	if err != nil || reply.Kind != ReplyAwaitingCustomTime {
		t.Fatalf("expected custom time prompt, got %+v, %v", reply, err)
	}

	calls := f.classifier.calls
	reply, err = f.uc.HandleMessage(ctx, "u1", "16.30")
	if err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}
	if f.classifier.calls != calls {
		t.Fatalf("typed time must not reach the classifier")
	}
	want := time.Date(2030, 3, 11, 16, 30, 0, 0, time.UTC)
	if reply.Kind != ReplyCreated || !reply.Task.DueAt.Equal(want) {
		t.Fatalf("expected task due %s, got %+v", want, reply)
	}
}

func TestSecondDraftReplacesFirst(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.classifier.result = &domain.Classification{Intent: "create", Title: "First", DueDate: "2030-03-10"}
	if _, err := f.uc.HandleMessage(ctx, "u1", "first thing"); err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}
	f.classifier.result = &domain.Classification{Intent: "create", Title: "Second", DueDate: "2030-03-12"}
	if _, err := f.uc.HandleMessage(ctx, "u1", "second thing"); err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}

	reply, err := f.uc.SelectTime(ctx, "u1", "09:00")
	if err != nil {
		t.Fatalf("SelectTime returned error: %v", err)
	}
	if reply.Task.Title != "Second" {
		t.Fatalf("expected the newest draft to win, got %q", reply.Task.Title)
	}
	if active, _ := f.tasks.ListActive(ctx, "u1"); len(active) != 1 {
		t.Fatalf("expected exactly one task, got %d", len(active))
	}
}

func TestMalformedClassificationAsksToRestate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cls  *domain.Classification
		err  error
	}{
		{name: "malformed error", err: domain.ErrMalformedIntent},
		{name: "missing title", cls: &domain.Classification{Intent: "create", DueDate: "2030-03-10 10:00"}},
		{name: "bad date", cls: &domain.Classification{Intent: "create", Title: "x", DueDate: "next week"}},
		{name: "missing date", cls: &domain.Classification{Intent: "create", Title: "x"}},
		{name: "complete without ids", cls: &domain.Classification{Intent: "complete"}},
		{name: "chat without response", cls: &domain.Classification{Intent: "chat"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.classifier.result = tc.cls
			f.classifier.err = tc.err

			reply, err := f.uc.HandleMessage(context.Background(), "u1", "something")
			if err != nil {
				t.Fatalf("HandleMessage returned error: %v", err)
			}
			if reply.Kind != ReplyRestate {
				t.Fatalf("expected restate, got %s", reply.Kind)
			}
			if len(f.planner.planned) != 0 {
				t.Fatalf("nothing must be scheduled")
			}
		})
	}
}

func TestClassifierFailureAsksToRetry(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.classifier.err = domain.WrapError(domain.ErrCodeUnavailable, "classifier unavailable", errors.New("timeout"))

	reply, err := f.uc.HandleMessage(context.Background(), "u1", "buy milk")
	if err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}
	if reply.Kind != ReplyRetryLater {
		t.Fatalf("expected retry_later, got %s", reply.Kind)
	}
}

func TestCompleteCancelsReminders(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	created, err := f.tasks.Add(ctx, &domain.Task{OwnerID: "u1", Title: "x", DueAt: testNow.Add(time.Hour)})
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	f.classifier.result = &domain.Classification{Intent: "complete", TaskIDs: []string{created.ID}}
	reply, err := f.uc.HandleMessage(ctx, "u1", "done with x")
	if err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}
	if reply.Kind != ReplyCompleted {
		t.Fatalf("expected completed, got %s", reply.Kind)
	}
	if len(f.planner.cancelled) != 1 || f.planner.cancelled[0] != created.ID {
		t.Fatalf("expected reminders cancelled, got %v", f.planner.cancelled)
	}
	stored, _ := f.tasks.Get(ctx, created.ID, "u1")
	if !stored.IsDone {
		t.Fatalf("task must be done")
	}
}

func TestUnknownTaskReportsNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	other, _ := f.tasks.Add(ctx, &domain.Task{OwnerID: "u2", Title: "theirs", DueAt: testNow.Add(time.Hour)})

	for _, intent := range []string{"complete", "delete"} {
		f.classifier.result = &domain.Classification{Intent: intent, TaskIDs: []string{"missing", other.ID}}
		reply, err := f.uc.HandleMessage(ctx, "u1", "remove it")
		if err != nil {
			t.Fatalf("HandleMessage returned error: %v", err)
		}
		if reply.Kind != ReplyNotFound {
			t.Fatalf("%s: expected not_found, got %s", intent, reply.Kind)
		}
	}
	if _, err := f.uc.Complete(ctx, "u1", other.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("foreign task must not be reachable, got %v", err)
	}
	if len(f.planner.cancelled) != 0 {
		t.Fatalf("nothing must be cancelled")
	}
}

func TestCommands(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	active, _ := f.tasks.Add(ctx, &domain.Task{OwnerID: "u1", Title: "active", DueAt: testNow.Add(time.Hour)})
	done, _ := f.tasks.Add(ctx, &domain.Task{OwnerID: "u1", Title: "done", DueAt: testNow.Add(-time.Hour)})
	_ = f.tasks.MarkDone(ctx, done.ID)

	reply, err := f.uc.HandleMessage(ctx, "u1", "/tasks")
	if err != nil || reply.Kind != ReplyTasks || len(reply.Tasks) != 1 {
		t.Fatalf("/tasks: unexpected reply %+v, %v", reply, err)
	}
	reply, err = f.uc.HandleMessage(ctx, "u1", "/done")
	if err != nil || reply.Kind != ReplyDoneTasks || len(reply.Tasks) != 1 {
		t.Fatalf("/done: unexpected reply %+v, %v", reply, err)
	}
	reply, err = f.uc.HandleMessage(ctx, "u1", "/del_"+active.ID)
	if err != nil || reply.Kind != ReplyCompleted {
		t.Fatalf("/del_: unexpected reply %+v, %v", reply, err)
	}
	reply, err = f.uc.HandleMessage(ctx, "u1", "/clear")
	if err != nil || reply.Kind != ReplyCleared || reply.Count != 2 {
		t.Fatalf("/clear: unexpected reply %+v, %v", reply, err)
	}
	if f.classifier.calls != 0 {
		t.Fatalf("commands must not reach the classifier")
	}
}

func TestDraftRestoredWhenStoreFails(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{result: &domain.Classification{Intent: "create", Title: "x", DueDate: "2030-03-10"}}
	drafts := draft.New(nil)
	uc := New(failingTasks{memory.NewTaskRepository()}, memory.NewUserRepository(), classifier, drafts, &fakePlanner{}, nil,
		WithClock(func() time.Time { return testNow }))
	ctx := context.Background()

	if _, err := uc.HandleMessage(ctx, "u1", "x tomorrow"); err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}
	if _, err := uc.SelectTime(ctx, "u1", "12:00"); err == nil {
		t.Fatalf("expected store error")
	}
	if _, ok := drafts.Get("u1"); !ok {
		t.Fatalf("draft must survive a failed store")
	}
}

func TestSnoozeAndReopen(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	created, _ := f.tasks.Add(ctx, &domain.Task{OwnerID: "u1", Title: "x", DueAt: testNow.Add(time.Hour)})

	reply, err := f.uc.SnoozeReply(ctx, "u1", created.ID)
	if err != nil || reply.Kind != ReplySnoozed {
		t.Fatalf("unexpected snooze reply %+v, %v", reply, err)
	}
	if len(f.planner.snoozed) != 1 {
		t.Fatalf("expected one snooze job")
	}

	if _, err := f.uc.Complete(ctx, "u1", created.ID); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if _, _, err := f.uc.Snooze(ctx, "u1", created.ID); !domain.IsDomainError(err, domain.ErrCodeConflict) {
		t.Fatalf("snoozing a done task must fail, got %v", err)
	}
	reopened, err := f.uc.Reopen(ctx, "u1", created.ID)
	if err != nil || reopened.IsDone {
		t.Fatalf("unexpected reopen result %+v, %v", reopened, err)
	}
	if len(f.planner.planned) != 1 {
		t.Fatalf("reopen must plan reminders again")
	}
}

func TestEmptyMessageRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, err := f.uc.HandleMessage(context.Background(), "u1", "   "); !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}
