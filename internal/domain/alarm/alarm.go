package alarm

import (
	"fmt"
	"strings"
	"time"
)

// DefaultMessage replaces an empty alarm message.
const DefaultMessage = "Alarm!"

// State is the lifecycle position of an alarm.
type State string

const (
	// StateScheduled means the alarm waits for its trigger time.
	StateScheduled State = "scheduled"
	// StateFired means the alarm went off. Terminal.
	StateFired State = "fired"
	// StateCanceled means the alarm was canceled before firing. Terminal.
	StateCanceled State = "canceled"
)

// IsValid reports whether s is one of the known states.
func (s State) IsValid() bool {
	switch s {
	case StateScheduled, StateFired, StateCanceled:
		return true
	default:
		return false
	}
}

// Actor identifies who requested an alarm.
type Actor struct {
	// Hostname is the machine name the request came from.
	Hostname string `json:"hostname"`
	// Username is the system user who made the request.
	Username string `json:"username"`
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// String renders the actor as username@hostname.
func (a *Actor) String() string {
	if a == nil {
		return "<unknown>"
	}

	return fmt.Sprintf("%s@%s", a.Username, a.Hostname)
}

// Alarm is the durable record of one scheduled wake-up request.
type Alarm struct {
	// ID is assigned at creation and never reused.
	ID string `json:"id"`
	// TriggerTime is the instant the alarm has to fire. Immutable.
	TriggerTime time.Time `json:"trigger_time"`
	// Message is shown when the alarm fires.
	Message string `json:"message"`
	// State is the current lifecycle state.
	State State `json:"state"`
	// CreatedAt is when the alarm was registered.
	CreatedAt time.Time `json:"created_at"`
	// ClosedAt is when the alarm reached a terminal state, zero while scheduled.
	ClosedAt time.Time `json:"closed_at,omitzero"`
	// CreatedBy is the requester, if known.
	CreatedBy *Actor `json:"created_by,omitempty"`
}

// New builds a scheduled alarm. An empty message is replaced by DefaultMessage.
func New(id string, triggerTime time.Time, message string, createdAt time.Time, actor *Actor) Alarm {
	return Alarm{
		ID:          id,
		TriggerTime: triggerTime,
		Message:     NormalizeMessage(message),
		State:       StateScheduled,
		CreatedAt:   createdAt,
		CreatedBy:   actor.Clone(),
	}
}

// NormalizeMessage trims the message and falls back to DefaultMessage.
func NormalizeMessage(message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return DefaultMessage
	}

	return message
}

// IsTerminal reports whether the alarm can no longer change state.
func (a *Alarm) IsTerminal() bool {
	return a.State == StateFired || a.State == StateCanceled
}

// IsDue reports whether a scheduled alarm should fire at now.
func (a *Alarm) IsDue(now time.Time) bool {
	return a.State == StateScheduled && !a.TriggerTime.After(now)
}

// Fire moves a due scheduled alarm to fired.
func (a *Alarm) Fire(now time.Time) error {
	if a.State != StateScheduled {
		return fmt.Errorf("fire %s alarm %s: %w", a.State, a.ID, ErrInvalidTransition)
	}

	if a.TriggerTime.After(now) {
		return fmt.Errorf("fire alarm %s before %s: %w", a.ID, a.TriggerTime.Format(time.RFC3339), ErrInvalidTransition)
	}

	a.State = StateFired
	a.ClosedAt = now

	return nil
}

// Cancel moves a scheduled alarm to canceled.
func (a *Alarm) Cancel(now time.Time) error {
	if a.State != StateScheduled {
		return fmt.Errorf("cancel %s alarm %s: %w", a.State, a.ID, ErrInvalidTransition)
	}

	a.State = StateCanceled
	a.ClosedAt = now

	return nil
}

// Clone returns a copy that shares no pointers with a.
func (a *Alarm) Clone() Alarm {
	cloned := *a
	cloned.CreatedBy = a.CreatedBy.Clone()

	return cloned
}

// Less orders alarms by trigger time, then by id.
func Less(a, b *Alarm) bool {
	if !a.TriggerTime.Equal(b.TriggerTime) {
		return a.TriggerTime.Before(b.TriggerTime)
	}

	return a.ID < b.ID
}

// Compare is the three-way form of Less, suitable for slices.SortFunc.
func Compare(a, b Alarm) int {
	switch {
	case Less(&a, &b):
		return -1
	case Less(&b, &a):
		return 1
	default:
		return 0
	}
}
