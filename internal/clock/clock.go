// Package clock abstracts wall-clock time and the single wake-up timer the
// scheduler waits on.
package clock

import "time"

// Timer is a pending wake-up that can be canceled.
type Timer interface {
	// Stop prevents the timer from firing. It reports whether the call stopped it.
	Stop() bool
}

// Clock supplies the current time and a suspend-until primitive.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// System is the Clock backed by the time package.
type System struct{}

// Now returns time.Now.
func (System) Now() time.Time {
	return time.Now()
}

// AfterFunc wraps time.AfterFunc.
//
//nolint:ireturn // Timer is the abstraction callers depend on.
func (System) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Until returns the duration from c.Now() to t, never negative.
func Until(c Clock, t time.Time) time.Duration {
	d := t.Sub(c.Now())
	if d < 0 {
		return 0
	}

	return d
}
