package domain

import "time"

// IntentKind is the action the classifier inferred from free text.
type IntentKind string

const (
	IntentCreate   IntentKind = "create"
	IntentComplete IntentKind = "complete"
	IntentDelete   IntentKind = "delete"
	IntentList     IntentKind = "list"
	IntentChat     IntentKind = "chat"
)

// Classification is the raw, untrusted output of the language-understanding call.
type Classification struct {
	Intent        string   `json:"intent"`
	Title         string   `json:"title,omitempty"`
	DueDate       string   `json:"due_date,omitempty"`
	Category      string   `json:"category,omitempty"`
	UrgencyClass  string   `json:"urgency_class,omitempty"`
	TimeSpecified *bool    `json:"time_specified,omitempty"`
	TaskIDs       []string `json:"task_ids,omitempty"`
	ChatResponse  string   `json:"chat_response,omitempty"`
}

// ClassifyRequest carries the context the classifier needs.
type ClassifyRequest struct {
	Text        string
	Now         time.Time
	Location    *time.Location
	ActiveTasks []Summary
}

// NowDescriptor renders the reference time the way the classifier prompt expects it.
func (r ClassifyRequest) NowDescriptor() string {
	now := r.Now
	if r.Location != nil {
		now = now.In(r.Location)
	}
	return now.Format("2006-01-02 15:04, Monday")
}
