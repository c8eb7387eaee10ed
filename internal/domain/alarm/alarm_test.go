package alarm

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestActorClone verifies that Clone returns a deep copy and handles nil safely.
func TestActorClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Actor)(nil).Clone())

	a := &Actor{
		Hostname: "Oleg Shokin",
		Username: "o.shokin",
	}

	b := a.Clone()

	require.Equal(t, a, b)
	require.NotSame(t, a, b)
	require.Equal(t, "o.shokin@Oleg Shokin", a.String())
	require.Equal(t, "<unknown>", (*Actor)(nil).String())
}

// TestNew_DefaultsMessage checks the placeholder for blank messages.
func TestNew_DefaultsMessage(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 14, 7, 0, 0, 0, time.UTC)

	a := New("a", now.Add(time.Hour), "   ", now, nil)
	require.Equal(t, DefaultMessage, a.Message)
	require.Equal(t, StateScheduled, a.State)
	require.True(t, a.ClosedAt.IsZero())

	a = New("b", now.Add(time.Hour), " wake up ", now, nil)
	require.Equal(t, "wake up", a.Message)
}

// TestAlarm_Transitions walks the state machine, including rejected moves from terminal states.
func TestAlarm_Transitions(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 14, 7, 0, 0, 0, time.UTC)
	a := New("a", now.Add(time.Minute), "", now, nil)

	require.False(t, a.IsDue(now))
	require.ErrorIs(t, a.Fire(now), ErrInvalidTransition)

	later := now.Add(time.Minute)
	require.True(t, a.IsDue(later))
	require.NoError(t, a.Fire(later))
	require.Equal(t, StateFired, a.State)
	require.Equal(t, later, a.ClosedAt)
	require.True(t, a.IsTerminal())

	require.ErrorIs(t, a.Fire(later), ErrInvalidTransition)
	require.ErrorIs(t, a.Cancel(later), ErrInvalidTransition)

	b := New("b", now.Add(time.Minute), "", now, nil)
	require.NoError(t, b.Cancel(now))
	require.Equal(t, StateCanceled, b.State)
	require.ErrorIs(t, b.Fire(later), ErrInvalidTransition)
	require.False(t, b.IsDue(later))
}

// TestAlarm_Clone ensures the requester is deep-copied.
func TestAlarm_Clone(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	a := New("a", now, "m", now, &Actor{Hostname: "h", Username: "u"})
	c := a.Clone()

	require.Equal(t, a, c)
	require.NotSame(t, a.CreatedBy, c.CreatedBy)
}

// TestCompare orders by trigger time and breaks ties by id.
func TestCompare(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 10, 14, 7, 0, 0, 0, time.UTC)
	alarms := []Alarm{
		{ID: "c", TriggerTime: base.Add(time.Second)},
		{ID: "b", TriggerTime: base},
		{ID: "a", TriggerTime: base},
	}

	slices.SortFunc(alarms, Compare)

	ids := make([]string, 0, len(alarms))
	for _, a := range alarms {
		ids = append(ids, a.ID)
	}

	require.Equal(t, []string{"a", "b", "c"}, ids)
	require.True(t, StateFired.IsValid())
	require.False(t, State("snoozed").IsValid())
}
