package notify

import (
	"context"
	"errors"
	"time"

	"github.com/oshokin/alarm-clock/internal/logger"
)

// Notification is what the user sees when an alarm fires.
type Notification struct {
	// AlarmID identifies the fired alarm.
	AlarmID string
	// Message is the alarm text.
	Message string
	// TriggerTime is when the alarm was due.
	TriggerTime time.Time
}

// Notifier raises a user-visible notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

const (
	// TypeLog selects LogNotifier.
	TypeLog = "log"
	// TypeCommand selects CommandNotifier.
	TypeCommand = "command"
)

// LogNotifier writes notifications to the context logger.
type LogNotifier struct{}

// Notify never fails.
func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	logger.InfoKV(ctx, "ALARM",
		"alarm_id", n.AlarmID,
		"message", n.Message,
		"trigger_time", n.TriggerTime.Format(time.RFC3339),
	)

	return nil
}

// Multi calls every notifier and joins their errors.
type Multi []Notifier

// Notify delivers n to each notifier in order.
func (m Multi) Notify(ctx context.Context, n Notification) error {
	errs := make([]error, 0, len(m))

	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, n Notification) error

// Notify calls f.
func (f Func) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}
