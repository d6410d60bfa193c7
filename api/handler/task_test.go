package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/fastygo/taskbot/api/transport"
	"github.com/fastygo/taskbot/domain"
	"github.com/fastygo/taskbot/pkg/httpcontext"
	"github.com/fastygo/taskbot/repository/memory"
	"github.com/fastygo/taskbot/usecase"
	"github.com/fastygo/taskbot/usecase/draft"
	taskUC "github.com/fastygo/taskbot/usecase/task"
)

type staticClassifier struct {
	result *domain.Classification
}

func (s staticClassifier) Classify(context.Context, domain.ClassifyRequest) (*domain.Classification, error) {
	return s.result, nil
}

type nopPlanner struct{}

func (nopPlanner) Plan(*domain.Task) []domain.Job { return nil }
func (nopPlanner) Snooze(t *domain.Task) domain.Job {
	return domain.Job{Key: domain.JobKey{TaskID: t.ID, Slot: domain.SlotSnooze}, FireAt: time.Now().Add(30 * time.Minute)}
}
func (nopPlanner) Cancel(string) int { return 0 }

func newTaskHandler(t *testing.T, cls *domain.Classification) (*TaskHandler, *memory.TaskRepository) {
	t.Helper()
	tasks := memory.NewTaskRepository()
	uc := taskUC.New(tasks, memory.NewUserRepository(), staticClassifier{result: cls}, draft.New(nil), nopPlanner{}, nil)
	return NewTaskHandler(uc, usecase.NewTaskDispatcher(uc), httpcontext.NewAdapter(time.Second), nil), tasks
}

func request(ownerID, body string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.SetBodyString(body)
	if ownerID != "" {
		httpcontext.SetOwnerID(ctx, ownerID)
	}
	return ctx
}

func decodeEnvelope(t *testing.T, ctx *fasthttp.RequestCtx, data interface{}) transport.Envelope {
	t.Helper()
	var env struct {
		transport.Envelope
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(ctx.Response.Body(), &env); err != nil {
		t.Fatalf("invalid response body %q: %v", ctx.Response.Body(), err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("invalid data: %v", err)
		}
	}
	return env.Envelope
}

func TestHandleMessageCreatesTask(t *testing.T) {
	t.Parallel()

	h, tasks := newTaskHandler(t, &domain.Classification{
		Intent:  "create",
		Title:   "Gym",
		DueDate: time.Now().Add(48 * time.Hour).Format("2006-01-02 15:04"),
	})
	ctx := request("u1", `{"text":"gym in two days"}`)
	h.HandleMessage(ctx)

	if ctx.Response.StatusCode() != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	var reply taskUC.Reply
	decodeEnvelope(t, ctx, &reply)
	if reply.Kind != taskUC.ReplyCreated || reply.Task == nil || reply.Task.Title != "Gym" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if active, _ := tasks.ListActive(context.Background(), "u1"); len(active) != 1 {
		t.Fatalf("task not stored")
	}
}

func TestHandleMessageRequiresOwner(t *testing.T) {
	t.Parallel()

	h, _ := newTaskHandler(t, nil)
	ctx := request("", `{"text":"x"}`)
	h.HandleMessage(ctx)
	if ctx.Response.StatusCode() != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", ctx.Response.StatusCode())
	}
}

func TestHandleMessageRejectsBadPayload(t *testing.T) {
	t.Parallel()

	h, _ := newTaskHandler(t, nil)
	for _, body := range []string{`{`, `{"text":"  "}`} {
		ctx := request("u1", body)
		h.HandleMessage(ctx)
		if ctx.Response.StatusCode() != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, ctx.Response.StatusCode())
		}
	}
}

func TestSelectTimeWithoutDraft(t *testing.T) {
	t.Parallel()

	h, _ := newTaskHandler(t, nil)
	ctx := request("u1", `{"choice":"15:00"}`)
	h.SelectTime(ctx)
	if ctx.Response.StatusCode() != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", ctx.Response.StatusCode())
	}
}

func TestActionCompletesTask(t *testing.T) {
	t.Parallel()

	h, tasks := newTaskHandler(t, nil)
	created, _ := tasks.Add(context.Background(), &domain.Task{OwnerID: "u1", Title: "x", DueAt: time.Now().Add(time.Hour)})

	ctx := request("u1", `{"data":"done:`+created.ID+`"}`)
	h.HandleAction(ctx)
	if ctx.Response.StatusCode() != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	var reply taskUC.Reply
	decodeEnvelope(t, ctx, &reply)
	if reply.Kind != taskUC.ReplyCompleted {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	ctx = request("u1", `{"data":"archive:`+created.ID+`"}`)
	h.HandleAction(ctx)
	if ctx.Response.StatusCode() != http.StatusBadRequest {
		t.Fatalf("unknown action must be rejected, got %d", ctx.Response.StatusCode())
	}
}

func TestTaskRoutesUseOwnerScope(t *testing.T) {
	t.Parallel()

	h, tasks := newTaskHandler(t, nil)
	created, _ := tasks.Add(context.Background(), &domain.Task{OwnerID: "u2", Title: "theirs", DueAt: time.Now().Add(time.Hour)})

	ctx := request("u1", "")
	ctx.SetUserValue("id", created.ID)
	h.DeleteTask(ctx)
	if ctx.Response.StatusCode() != http.StatusNotFound {
		t.Fatalf("expected 404 for a foreign task, got %d", ctx.Response.StatusCode())
	}

	ctx = request("u2", "")
	ctx.SetUserValue("id", created.ID)
	h.CompleteTask(ctx)
	if ctx.Response.StatusCode() != http.StatusOK {
		t.Fatalf("expected 200, got %d", ctx.Response.StatusCode())
	}

	ctx = request("u2", "")
	ctx.QueryArgs().Set("status", "done")
	h.GetTasks(ctx)
	var listed []domain.Task
	env := decodeEnvelope(t, ctx, &listed)
	if env.Status != "success" || len(listed) != 1 {
		t.Fatalf("expected one done task, got %+v", listed)
	}
}
