package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/fastygo/taskbot/domain"
)

// ReplyKind tells the delivery channel how to present a Reply.
type ReplyKind string

const (
	ReplyCreated            ReplyKind = "created"
	ReplyAwaitingTime       ReplyKind = "awaiting_time"
	ReplyAwaitingCustomTime ReplyKind = "awaiting_custom_time"
	ReplyCompleted          ReplyKind = "completed"
	ReplyReopened           ReplyKind = "reopened"
	ReplySnoozed            ReplyKind = "snoozed"
	ReplyDeleted            ReplyKind = "deleted"
	ReplyTasks              ReplyKind = "tasks"
	ReplyDoneTasks          ReplyKind = "done_tasks"
	ReplyCleared            ReplyKind = "cleared"
	ReplyChat               ReplyKind = "chat"
	ReplyRestate            ReplyKind = "restate"
	ReplyRetryLater         ReplyKind = "retry_later"
	ReplyNotFound           ReplyKind = "not_found"
)

// Reply is the channel-neutral outcome of handling user input.
type Reply struct {
	Kind    ReplyKind     `json:"kind"`
	Message string        `json:"message"`
	Task    *domain.Task  `json:"task,omitempty"`
	Tasks   []domain.Task `json:"tasks,omitempty"`
	Choices []string      `json:"choices,omitempty"`
	Count   int64         `json:"count,omitempty"`
}

const dueLayout = "2006-01-02 15:04"

func createdReply(task *domain.Task, loc *time.Location) Reply {
	return Reply{
		Kind: ReplyCreated,
		Task: task,
		Message: fmt.Sprintf("Saved: %s\nDue: %s\nFirst reminder %d min before.",
			task.Title, task.DueAt.In(loc).Format(dueLayout), task.RemindBefore),
	}
}

func awaitingTimeReply(d domain.PendingDraft, choices []string) Reply {
	return Reply{
		Kind:    ReplyAwaitingTime,
		Choices: choices,
		Message: fmt.Sprintf("What time on %s for %q?", d.Date.Format("2006-01-02"), d.Title),
	}
}

func tasksReply(kind ReplyKind, tasks []domain.Task, loc *time.Location, now time.Time) Reply {
	if len(tasks) == 0 {
		msg := "No tasks. Send me a new one!"
		if kind == ReplyDoneTasks {
			msg = "No completed tasks yet."
		}
		return Reply{Kind: kind, Message: msg}
	}
	var b strings.Builder
	for _, t := range tasks {
		marker := "-"
		if kind == ReplyTasks && t.IsOverdue(now) {
			marker = "!"
		}
		fmt.Fprintf(&b, "%s %s (%s)\n", marker, t.Title, t.DueAt.In(loc).Format(dueLayout))
	}
	return Reply{Kind: kind, Tasks: tasks, Message: strings.TrimRight(b.String(), "\n")}
}

func restateReply() Reply {
	return Reply{
		Kind:    ReplyRestate,
		Message: "I could not understand the task. Try something like \"Meeting with the client tomorrow at 14:00\".",
	}
}

func retryLaterReply() Reply {
	return Reply{
		Kind:    ReplyRetryLater,
		Message: "Something went wrong on my side. Please try again in a moment.",
	}
}

func notFoundReply() Reply {
	return Reply{Kind: ReplyNotFound, Message: "Task not found."}
}
