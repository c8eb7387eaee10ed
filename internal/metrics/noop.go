package metrics

import "time"

// NoopSink discards every measurement.
type NoopSink struct{}

func (NoopSink) AlarmCreated() {}
func (NoopSink) AlarmCanceled() {}
func (NoopSink) AlarmFired(time.Duration) {}
func (NoopSink) FireFailed() {}
func (NoopSink) NotificationFailed() {}
func (NoopSink) ScheduledAlarms(int) {}
func (NoopSink) WakeupArmed(time.Duration) {}
func (NoopSink) WakeupDisarmed() {}
func (NoopSink) HistoryPruned(int) {}
func (NoopSink) StorageError(string) {}

var _ Sink = NoopSink{}
