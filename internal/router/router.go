package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/taskbot/api/handler"
)

type Handlers struct {
	Profile *apiHandler.ProfileHandler
	Task    *apiHandler.TaskHandler
	Health  *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Conversation
	r.POST("/api/v1/messages", authMiddleware(handlers.Task.HandleMessage))
	r.POST("/api/v1/drafts/time", authMiddleware(handlers.Task.SelectTime))
	r.POST("/api/v1/actions", authMiddleware(handlers.Task.HandleAction))

	// Tasks
	r.GET("/api/v1/tasks", authMiddleware(handlers.Task.GetTasks))
	r.DELETE("/api/v1/tasks/done", authMiddleware(handlers.Task.ClearDone))
	r.POST("/api/v1/tasks/{id}/complete", authMiddleware(handlers.Task.CompleteTask))
	r.POST("/api/v1/tasks/{id}/reopen", authMiddleware(handlers.Task.ReopenTask))
	r.POST("/api/v1/tasks/{id}/snooze", authMiddleware(handlers.Task.SnoozeTask))
	r.DELETE("/api/v1/tasks/{id}", authMiddleware(handlers.Task.DeleteTask))

	r.GET("/api/v1/profile", authMiddleware(handlers.Profile.GetProfile))
	r.PUT("/api/v1/profile", authMiddleware(handlers.Profile.UpdateProfile))

	return r
}
