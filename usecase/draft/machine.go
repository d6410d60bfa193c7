// Package draft keeps create intents whose time of day is not known yet.
//
// Each owner has at most one open draft. Opening a new one silently replaces
// the previous draft. Drafts live in memory only and are lost on restart.
package draft

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskbot/domain"
)

// ChoiceCustom asks the owner to type a time instead of picking one.
const ChoiceCustom = "custom"

// CanonicalTimes are the times offered for a draft, in menu order.
var CanonicalTimes = []string{"09:00", "12:00", "15:00", "19:00"}

// Choices returns the full menu, canonical times followed by custom.
func Choices() []string {
	out := make([]string, 0, len(CanonicalTimes)+1)
	out = append(out, CanonicalTimes...)
	return append(out, ChoiceCustom)
}

var clockPattern = regexp.MustCompile(`^(\d{1,2})[:.](\d{2})$`)

// ParseClock parses H:MM, HH:MM, H.MM or HH.MM.
func ParseClock(text string) (hour, minute int, ok bool) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// Machine holds the per-owner drafts.
type Machine struct {
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu     sync.Mutex
	drafts map[string]domain.PendingDraft
}

// Option customizes a Machine.
type Option func(*Machine)

// WithTTL expires drafts older than ttl; zero keeps them until resolved.
func WithTTL(ttl time.Duration) Option {
	return func(m *Machine) {
		if ttl >= 0 {
			m.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

func New(logger *zap.Logger, opts ...Option) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Machine{
		now:    time.Now,
		logger: logger,
		drafts: make(map[string]domain.PendingDraft),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open stores d as the owner's draft and reports whether one was replaced.
func (m *Machine) Open(d domain.PendingDraft) bool {
	d.CreatedAt = m.now()
	d.CustomAsked = false

	m.mu.Lock()
	defer m.mu.Unlock()
	_, replaced := m.liveLocked(d.OwnerID)
	m.drafts[d.OwnerID] = d
	if replaced {
		m.logger.Info("draft replaced", zap.String("owner_id", d.OwnerID))
	}
	return replaced
}

// Get returns the owner's open draft.
func (m *Machine) Get(ownerID string) (domain.PendingDraft, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.liveLocked(ownerID)
}

// AskCustom marks the owner's draft as waiting for a typed time.
func (m *Machine) AskCustom(ownerID string) (domain.PendingDraft, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.liveLocked(ownerID)
	if !ok {
		return domain.PendingDraft{}, false
	}
	d.CustomAsked = true
	m.drafts[ownerID] = d
	return d, true
}

// Resolve removes the owner's draft and returns its due instant at hour:minute.
// Only one caller can resolve a given draft.
func (m *Machine) Resolve(ownerID string, hour, minute int) (domain.PendingDraft, time.Time, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return domain.PendingDraft{}, time.Time{}, domain.ErrInvalidTime
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.liveLocked(ownerID)
	if !ok {
		return domain.PendingDraft{}, time.Time{}, domain.ErrNoDraft
	}
	delete(m.drafts, ownerID)
	return d, d.At(hour, minute), nil
}

// Restore puts a resolved draft back when creating its task failed.
// A newer draft opened meanwhile wins.
func (m *Machine) Restore(d domain.PendingDraft) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drafts[d.OwnerID]; !ok {
		m.drafts[d.OwnerID] = d
	}
}

// Discard drops the owner's draft, if any.
func (m *Machine) Discard(ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, ownerID)
}

// Len returns the number of live drafts.
func (m *Machine) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for owner := range m.drafts {
		if _, ok := m.liveLocked(owner); ok {
			n++
		}
	}
	return n
}

func (m *Machine) liveLocked(ownerID string) (domain.PendingDraft, bool) {
	d, ok := m.drafts[ownerID]
	if !ok {
		return domain.PendingDraft{}, false
	}
	if m.ttl > 0 && m.now().Sub(d.CreatedAt) > m.ttl {
		delete(m.drafts, ownerID)
		m.logger.Debug("draft expired", zap.String("owner_id", ownerID))
		return domain.PendingDraft{}, false
	}
	return d, true
}
