package classifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/fastygo/taskbot/domain"
)

// SystemPrompt builds the instructions for one classification call.
func SystemPrompt(req domain.ClassifyRequest) string {
	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}

	categories := make([]string, 0, len(domain.Categories()))
	for _, c := range domain.Categories() {
		categories = append(categories, string(c))
	}

	var tasks strings.Builder
	if len(req.ActiveTasks) == 0 {
		tasks.WriteString("(none)\n")
	}
	for _, t := range req.ActiveTasks {
		fmt.Fprintf(&tasks, "- id=%s %q due %s\n", t.ID, t.Title, t.DueAt.In(loc).Format("2006-01-02 15:04"))
	}

	return fmt.Sprintf(`You are a task parser. Current time: %s. Time zone: %s.

Classify the user's message into one intent: create, complete, delete, list or chat.

For create extract:
- title: a short task title
- due_date: "YYYY-MM-DD HH:MM" (24h) when a time of day was given, otherwise "YYYY-MM-DD"
- time_specified: true only if the user named a time of day
- category: one of %s
- urgency_class: event (needs a day of notice), meeting, errand or default

Rules:
- "tomorrow" is the next day, "the day after tomorrow" is +2 days
- "on Monday" is the nearest Monday (next week's if today is Monday)
- no date means today
- "in an hour" is the current time plus one hour
- "in the evening" is 19:00, "in the morning" is 09:00, "in the afternoon" is 13:00

For complete and delete put the ids of the referenced tasks in task_ids.
For chat answer briefly in chat_response.

Active tasks:
%s
Reply ONLY with valid JSON without markdown:
{"intent": "...", "title": "...", "due_date": "...", "time_specified": true, "category": "...", "urgency_class": "...", "task_ids": [], "chat_response": ""}`,
		req.NowDescriptor(), loc.String(), strings.Join(categories, ", "), tasks.String())
}
