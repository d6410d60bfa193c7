package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskbot/api/transport"
	"github.com/fastygo/taskbot/domain"
	"github.com/fastygo/taskbot/pkg/httpcontext"
	"github.com/fastygo/taskbot/usecase"
	taskUC "github.com/fastygo/taskbot/usecase/task"
)

type TaskHandler struct {
	baseHandler
	uc      *taskUC.UseCase
	actions *usecase.Dispatcher
}

func NewTaskHandler(uc *taskUC.UseCase, actions *usecase.Dispatcher, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		actions:     actions,
	}
}

// @Summary Handle a chat message
// @Tags messages
// @Accept json
// @Router /api/v1/messages [post]
func (h *TaskHandler) HandleMessage(ctx *fasthttp.RequestCtx) {
	ownerID := h.ownerID(ctx)
	if ownerID == "" {
		return
	}
	var req transport.MessageRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	reply, err := h.uc.HandleMessage(stdCtx, ownerID, req.Text)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondReply(ctx, reply)
}

// @Summary Pick a time for the pending draft
// @Tags messages
// @Router /api/v1/drafts/time [post]
func (h *TaskHandler) SelectTime(ctx *fasthttp.RequestCtx) {
	ownerID := h.ownerID(ctx)
	if ownerID == "" {
		return
	}
	var req transport.TimeChoiceRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	reply, err := h.uc.SelectTime(stdCtx, ownerID, req.Choice)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondReply(ctx, reply)
}

// @Summary Press a reminder button
// @Tags messages
// @Router /api/v1/actions [post]
func (h *TaskHandler) HandleAction(ctx *fasthttp.RequestCtx) {
	ownerID := h.ownerID(ctx)
	if ownerID == "" {
		return
	}
	var req transport.ActionRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	reply, err := h.actions.Dispatch(stdCtx, ownerID, req.Data)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondReply(ctx, reply)
}

// @Summary List tasks
// @Tags tasks
// @Param status query string false "active (default) or done"
// @Router /api/v1/tasks [get]
func (h *TaskHandler) GetTasks(ctx *fasthttp.RequestCtx) {
	ownerID := h.ownerID(ctx)
	if ownerID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var (
		tasks []domain.Task
		err   error
	)
	status := string(ctx.QueryArgs().Peek("status"))
	switch status {
	case "", "active":
		status = "active"
		tasks, err = h.uc.ListActive(stdCtx, ownerID)
	case "done":
		tasks, err = h.uc.ListDone(stdCtx, ownerID)
	default:
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "unknown status filter", nil))
		return
	}
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(tasks, transport.ListMeta{
		Count:    len(tasks),
		Status:   status,
		Timezone: h.uc.Location(stdCtx, ownerID).String(),
	}))
}

// @Summary Complete task
// @Tags tasks
// @Router /api/v1/tasks/{id}/complete [post]
func (h *TaskHandler) CompleteTask(ctx *fasthttp.RequestCtx) {
	h.withTask(ctx, func(stdCtx context.Context, ownerID, id string) (interface{}, error) {
		return h.uc.Complete(stdCtx, ownerID, id)
	})
}

// @Summary Reopen task
// @Tags tasks
// @Router /api/v1/tasks/{id}/reopen [post]
func (h *TaskHandler) ReopenTask(ctx *fasthttp.RequestCtx) {
	h.withTask(ctx, func(stdCtx context.Context, ownerID, id string) (interface{}, error) {
		return h.uc.Reopen(stdCtx, ownerID, id)
	})
}

// @Summary Snooze task reminder
// @Tags tasks
// @Router /api/v1/tasks/{id}/snooze [post]
func (h *TaskHandler) SnoozeTask(ctx *fasthttp.RequestCtx) {
	h.withTask(ctx, func(stdCtx context.Context, ownerID, id string) (interface{}, error) {
		task, job, err := h.uc.Snooze(stdCtx, ownerID, id)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"task":    task,
			"fire_at": job.FireAt.Format(time.RFC3339),
		}, nil
	})
}

// @Summary Delete task
// @Tags tasks
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	h.withTask(ctx, func(stdCtx context.Context, ownerID, id string) (interface{}, error) {
		return h.uc.Delete(stdCtx, ownerID, id)
	})
}

// @Summary Remove completed tasks
// @Tags tasks
// @Router /api/v1/tasks/done [delete]
func (h *TaskHandler) ClearDone(ctx *fasthttp.RequestCtx) {
	ownerID := h.ownerID(ctx)
	if ownerID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	removed, err := h.uc.ClearDone(stdCtx, ownerID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]int64{"removed": removed})
}

func (h *TaskHandler) respondReply(ctx *fasthttp.RequestCtx, reply taskUC.Reply) {
	status := http.StatusOK
	if reply.Kind == taskUC.ReplyCreated {
		status = http.StatusCreated
	}
	h.respondSuccess(ctx, status, reply)
}
