package domain

import (
	"strings"
	"time"
)

// Category groups tasks by life area.
type Category string

const (
	CategoryWork      Category = "work"
	CategoryHome      Category = "home"
	CategoryHobby     Category = "hobby"
	CategoryAI        Category = "ai"
	CategoryFinance   Category = "finance"
	CategoryHealth    Category = "health"
	CategoryEducation Category = "education"
	CategoryTravel    Category = "travel"
	CategorySocial    Category = "social"
	CategoryPersonal  Category = "personal"
)

var categories = []Category{
	CategoryWork,
	CategoryHome,
	CategoryHobby,
	CategoryAI,
	CategoryFinance,
	CategoryHealth,
	CategoryEducation,
	CategoryTravel,
	CategorySocial,
	CategoryPersonal,
}

// Categories lists every known category in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory normalizes raw input, falling back to personal.
func ParseCategory(raw string) Category {
	value := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, c := range categories {
		if c == value {
			return c
		}
	}
	return CategoryPersonal
}

// UrgencyClass selects the reminder offset profile of a task.
type UrgencyClass string

const (
	UrgencyEvent   UrgencyClass = "event"
	UrgencyMeeting UrgencyClass = "meeting"
	UrgencyErrand  UrgencyClass = "errand"
	UrgencyDefault UrgencyClass = "default"
)

// ParseUrgency normalizes raw input, falling back to default.
func ParseUrgency(raw string) UrgencyClass {
	switch value := UrgencyClass(strings.ToLower(strings.TrimSpace(raw))); value {
	case UrgencyEvent, UrgencyMeeting, UrgencyErrand:
		return value
	default:
		return UrgencyDefault
	}
}

// Task represents a user-owned item with a concrete due instant.
type Task struct {
	ID           string       `json:"id"`
	OwnerID      string       `json:"owner_id"`
	Title        string       `json:"title"`
	DueAt        time.Time    `json:"due_at"`
	Category     Category     `json:"category"`
	Urgency      UrgencyClass `json:"urgency"`
	RemindBefore int          `json:"remind_before"`
	IsDone       bool         `json:"is_done"`
	OriginalText string       `json:"original_text,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IsActive reports whether reminders may still fire for the task.
func (t *Task) IsActive() bool {
	return t != nil && !t.IsDone
}

// IsOverdue reports whether the due instant has passed at reference.
func (t *Task) IsOverdue(reference time.Time) bool {
	if t == nil {
		return false
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return t.DueAt.Before(reference)
}

// Normalize replaces unknown enumerations with their defaults.
func (t *Task) Normalize() {
	if t == nil {
		return
	}
	t.Title = strings.TrimSpace(t.Title)
	t.Category = ParseCategory(string(t.Category))
	t.Urgency = ParseUrgency(string(t.Urgency))
}

// Summary is the compact view of an active task handed to the classifier.
type Summary struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	DueAt time.Time `json:"due_at"`
}

// Summarize builds classifier summaries for tasks.
func Summarize(tasks []Task) []Summary {
	out := make([]Summary, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, Summary{ID: t.ID, Title: t.Title, DueAt: t.DueAt})
	}
	return out
}
