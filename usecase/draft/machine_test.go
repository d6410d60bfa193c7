package draft

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fastygo/taskbot/domain"
)

func newDraft(owner, title string) domain.PendingDraft {
	return domain.PendingDraft{
		OwnerID: owner,
		Title:   title,
		Date:    time.Date(2030, 3, 10, 0, 0, 0, 0, time.UTC),
		Urgency: domain.UrgencyDefault,
	}
}

func TestParseClock(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in           string
		hour, minute int
		ok           bool
	}{
		{"9:30", 9, 30, true},
		{"09:30", 9, 30, true},
		{"21.05", 21, 5, true},
		{" 0:00 ", 0, 0, true},
		{"23:59", 23, 59, true},
		{"24:00", 0, 0, false},
		{"12:60", 0, 0, false},
		{"930", 0, 0, false},
		{"9:3", 0, 0, false},
		{"at 9:30", 0, 0, false},
		{"buy milk", 0, 0, false},
	}
	for _, tc := range cases {
		hour, minute, ok := ParseClock(tc.in)
		if ok != tc.ok || hour != tc.hour || minute != tc.minute {
			t.Fatalf("ParseClock(%q) = %d, %d, %v; want %d, %d, %v", tc.in, hour, minute, ok, tc.hour, tc.minute, tc.ok)
		}
	}
}

func TestChoicesMenu(t *testing.T) {
	t.Parallel()

	got := Choices()
	want := []string{"09:00", "12:00", "15:00", "19:00", "custom"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestResolveComposesDueInstant(t *testing.T) {
	t.Parallel()

	m := New(nil)
	m.Open(newDraft("u1", "dentist"))

	d, due, err := m.Resolve("u1", 15, 0)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if d.Title != "dentist" {
		t.Fatalf("unexpected draft: %+v", d)
	}
	want := time.Date(2030, 3, 10, 15, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Fatalf("expected %s, got %s", want, due)
	}
	if _, ok := m.Get("u1"); ok {
		t.Fatalf("resolved draft must be discarded")
	}
}

func TestOpenReplacesPreviousDraft(t *testing.T) {
	t.Parallel()

	m := New(nil)
	if m.Open(newDraft("u1", "first")) {
		t.Fatalf("first draft must not report a replacement")
	}
	if !m.Open(newDraft("u1", "second")) {
		t.Fatalf("second draft must replace the first")
	}
	m.Open(newDraft("u2", "other owner"))

	d, _, err := m.Resolve("u1", 9, 0)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if d.Title != "second" {
		t.Fatalf("expected the newest draft, got %q", d.Title)
	}
	if _, _, err := m.Resolve("u1", 9, 0); !errors.Is(err, domain.ErrNoDraft) {
		t.Fatalf("expected ErrNoDraft after resolution, got %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("other owners keep their drafts")
	}
}

func TestResolveRejectsInvalidTime(t *testing.T) {
	t.Parallel()

	m := New(nil)
	m.Open(newDraft("u1", "x"))
	if _, _, err := m.Resolve("u1", 25, 0); !errors.Is(err, domain.ErrInvalidTime) {
		t.Fatalf("expected ErrInvalidTime, got %v", err)
	}
	if _, ok := m.Get("u1"); !ok {
		t.Fatalf("invalid time must leave the draft open")
	}
}

func TestConcurrentResolveHappensOnce(t *testing.T) {
	t.Parallel()

	m := New(nil)
	m.Open(newDraft("u1", "x"))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		resolved int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := m.Resolve("u1", 12, 0); err == nil {
				mu.Lock()
				resolved++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if resolved != 1 {
		t.Fatalf("expected exactly one resolution, got %d", resolved)
	}
}

func TestDraftExpires(t *testing.T) {
	t.Parallel()

	now := time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)
	m := New(nil, WithTTL(30*time.Minute), WithClock(func() time.Time { return now }))
	m.Open(newDraft("u1", "x"))

	now = now.Add(29 * time.Minute)
	if _, ok := m.Get("u1"); !ok {
		t.Fatalf("draft must be alive before ttl")
	}
	now = now.Add(2 * time.Minute)
	if _, ok := m.Get("u1"); ok {
		t.Fatalf("draft must expire after ttl")
	}
}

func TestAskCustomAndRestore(t *testing.T) {
	t.Parallel()

	m := New(nil)
	if _, ok := m.AskCustom("u1"); ok {
		t.Fatalf("custom without a draft must fail")
	}
	m.Open(newDraft("u1", "x"))
	d, ok := m.AskCustom("u1")
	if !ok || !d.CustomAsked {
		t.Fatalf("expected draft to await a custom time")
	}

	resolved, _, err := m.Resolve("u1", 7, 15)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	m.Restore(resolved)
	if _, ok := m.Get("u1"); !ok {
		t.Fatalf("restored draft must be open again")
	}
}
