package domain

import "time"

// PendingDraft holds a create intent whose time of day is still unknown.
type PendingDraft struct {
	OwnerID      string       `json:"owner_id"`
	Title        string       `json:"title"`
	Date         time.Time    `json:"date"`
	Category     Category     `json:"category"`
	Urgency      UrgencyClass `json:"urgency"`
	OriginalText string       `json:"original_text,omitempty"`
	CustomAsked  bool         `json:"custom_asked"`
	CreatedAt    time.Time    `json:"created_at"`
}

// At composes the due instant from the stored date and a time of day.
func (d PendingDraft) At(hour, minute int) time.Time {
	loc := d.Date.Location()
	return time.Date(d.Date.Year(), d.Date.Month(), d.Date.Day(), hour, minute, 0, 0, loc)
}
