package monitor

import "time"

// Probe is the state of one dependency. Unconfigured dependencies are skipped.
type Probe struct {
	Configured bool `json:"configured"`
	Healthy    bool `json:"healthy"`
}

type Status struct {
	PostgreSQL    Probe     `json:"postgresql"`
	Redis         Probe     `json:"redis"`
	Outbox        Probe     `json:"outbox"`
	OutboxSize    int       `json:"outbox_size"`
	ScheduledJobs int       `json:"scheduled_jobs"`
	LastCheck     time.Time `json:"last_check"`
}

// Healthy reports whether every configured dependency answered.
func (s Status) Healthy() bool {
	for _, p := range []Probe{s.PostgreSQL, s.Redis, s.Outbox} {
		if p.Configured && !p.Healthy {
			return false
		}
	}
	return true
}
