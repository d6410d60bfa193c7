package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"

	"github.com/fastygo/taskbot/api/transport"
	"github.com/fastygo/taskbot/domain"
)

type taskOperation func(ctx context.Context, ownerID, id string) (interface{}, error)

// withTask resolves the owner and the {id} path parameter, then runs op.
func (h *TaskHandler) withTask(ctx *fasthttp.RequestCtx, op taskOperation) {
	ownerID := h.ownerID(ctx)
	if ownerID == "" {
		return
	}
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing task id", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := op(stdCtx, ownerID, id)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, result)
}
