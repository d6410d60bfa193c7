package domain

import (
	"fmt"
	"time"
)

// OffsetSlot identifies one reminder instance of a task.
type OffsetSlot int8

const (
	SlotFirst OffsetSlot = iota
	SlotSecond
	SlotThird
	SlotSnooze
)

// MaxProfileSlots is the number of offset slots a profile may occupy.
const MaxProfileSlots = 3

// AllSlots lists every slot a task can have a job in.
func AllSlots() []OffsetSlot {
	return []OffsetSlot{SlotFirst, SlotSecond, SlotThird, SlotSnooze}
}

// SlotForIndex maps a profile offset index onto its slot.
func SlotForIndex(i int) (OffsetSlot, bool) {
	if i < 0 || i >= MaxProfileSlots {
		return 0, false
	}
	return OffsetSlot(i), true
}

func (s OffsetSlot) String() string {
	switch s {
	case SlotFirst:
		return "0"
	case SlotSecond:
		return "1"
	case SlotThird:
		return "2"
	case SlotSnooze:
		return "snooze"
	default:
		return fmt.Sprintf("slot(%d)", int8(s))
	}
}

// JobKey is the deterministic identity of a scheduled reminder.
type JobKey struct {
	TaskID string
	Slot   OffsetSlot
}

func (k JobKey) String() string {
	return fmt.Sprintf("%s:%s", k.TaskID, k.Slot)
}

// Job describes one pending reminder held by the scheduler.
type Job struct {
	Key     JobKey    `json:"key"`
	OwnerID string    `json:"owner_id"`
	FireAt  time.Time `json:"fire_at"`
}

// ReminderAction is a follow-up the user can take from a delivered reminder.
type ReminderAction string

const (
	ActionDone   ReminderAction = "done"
	ActionSnooze ReminderAction = "snooze"
	ActionDelete ReminderAction = "delete"
)

// CallbackData encodes the action for a task the way chat buttons carry it.
func (a ReminderAction) CallbackData(taskID string) string {
	return string(a) + ":" + taskID
}

// Notification is what the delivery collaborator receives when a reminder fires.
type Notification struct {
	OwnerID string    `json:"owner_id"`
	TaskID  string    `json:"task_id"`
	Slot    string    `json:"slot"`
	Text    string    `json:"text"`
	Title   string    `json:"title"`
	DueAt   time.Time `json:"due_at"`
	Actions []string  `json:"actions"`
}
