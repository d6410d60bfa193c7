package domain

import "time"

// User represents a task owner and the zone their due times are expressed in.
type User struct {
	ID        string    `json:"id"`
	Timezone  string    `json:"timezone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Location resolves the user's zone, returning fallback when unset or invalid.
func (u *User) Location(fallback *time.Location) *time.Location {
	if fallback == nil {
		fallback = time.UTC
	}
	if u == nil || u.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}
