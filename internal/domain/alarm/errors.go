package alarm

import "errors"

var (
	// ErrInvalidTime is returned when a trigger time is not strictly in the future.
	ErrInvalidTime = errors.New("trigger time must be in the future")
	// ErrNotFound is returned when no alarm exists for the requested id.
	ErrNotFound = errors.New("alarm not found")
	// ErrStorageUnavailable wraps any persistence failure, including timeouts.
	ErrStorageUnavailable = errors.New("alarm storage unavailable")
	// ErrNotificationFailed is reported when the notification capability fails.
	// It is logged and never returned to API callers.
	ErrNotificationFailed = errors.New("alarm notification failed")
	// ErrInvalidTransition is returned when a terminal alarm is asked to change state.
	ErrInvalidTransition = errors.New("invalid alarm state transition")
)
