// Package metrics records alarm engine activity.
//
// Sink methods are fire-and-forget: implementations never block and never
// return errors, so a broken metrics backend cannot affect alarm delivery.
package metrics

import "time"

// Sink defines the interface for recording metrics.
type Sink interface {
	// Engine metrics
	AlarmCreated()
	AlarmCanceled()

	// Scheduler metrics
	AlarmFired(lateness time.Duration)
	FireFailed()
	NotificationFailed()
	ScheduledAlarms(count int)
	WakeupArmed(delay time.Duration)
	WakeupDisarmed()
	HistoryPruned(count int)

	// Store metrics
	StorageError(operation string)
}

// Storage operation labels for StorageError.
const (
	OperationCreate = "create"
	OperationCancel = "cancel"
	OperationList   = "list"
	OperationFire   = "fire"
	OperationPrune  = "prune"
)
