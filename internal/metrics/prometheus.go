package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oshokin/alarm-clock/internal/logger"
)

// PrometheusSink implements Sink using the Prometheus client library.
type PrometheusSink struct {
	createdTotal            prometheus.Counter
	canceledTotal           prometheus.Counter
	firedTotal              prometheus.Counter
	fireFailuresTotal       prometheus.Counter
	notificationFailedTotal prometheus.Counter
	prunedTotal             prometheus.Counter
	storageErrorsTotal      *prometheus.CounterVec
	fireLateness            prometheus.Histogram
	scheduled               prometheus.Gauge
	nextWakeup              prometheus.Gauge
}

// NewPrometheusSink creates the collectors and registers them with reg.
// Registration failures are logged; the sink still works, the metric is just not exported.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		createdTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alarmclock_alarms_created_total",
			Help: "Total number of alarms created.",
		}),
		canceledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alarmclock_alarms_canceled_total",
			Help: "Total number of alarms canceled.",
		}),
		firedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alarmclock_alarms_fired_total",
			Help: "Total number of alarms fired.",
		}),
		fireFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alarmclock_fire_failures_total",
			Help: "Total number of due alarms whose fired state could not be persisted.",
		}),
		notificationFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alarmclock_notification_failures_total",
			Help: "Total number of failed notification attempts.",
		}),
		prunedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alarmclock_history_pruned_total",
			Help: "Total number of terminal alarms removed by the retention policy.",
		}),
		storageErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alarmclock_storage_errors_total",
			Help: "Total number of store failures by operation.",
		}, []string{"operation"}),
		fireLateness: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "alarmclock_fire_lateness_seconds",
			Help:    "Delay between an alarm's trigger time and the moment it fired.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60, 300, 3600},
		}),
		scheduled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alarmclock_scheduled_alarms",
			Help: "Number of alarms waiting to fire.",
		}),
		nextWakeup: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alarmclock_next_wakeup_seconds",
			Help: "Seconds until the armed wake-up; 0 when disarmed.",
		}),
	}

	for name, c := range map[string]prometheus.Collector{
		"alarmclock_alarms_created_total":        s.createdTotal,
		"alarmclock_alarms_canceled_total":       s.canceledTotal,
		"alarmclock_alarms_fired_total":          s.firedTotal,
		"alarmclock_fire_failures_total":         s.fireFailuresTotal,
		"alarmclock_notification_failures_total": s.notificationFailedTotal,
		"alarmclock_history_pruned_total":        s.prunedTotal,
		"alarmclock_storage_errors_total":        s.storageErrorsTotal,
		"alarmclock_fire_lateness_seconds":       s.fireLateness,
		"alarmclock_scheduled_alarms":            s.scheduled,
		"alarmclock_next_wakeup_seconds":         s.nextWakeup,
	} {
		register(reg, c, name)
	}

	return s
}

func register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if reg == nil {
		return
	}

	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return
		}

		logger.Logger().Warnw("Failed to register metric", "metric", name, "error", err)
	}
}

func (s *PrometheusSink) AlarmCreated() {
	s.createdTotal.Inc()
}

func (s *PrometheusSink) AlarmCanceled() {
	s.canceledTotal.Inc()
}

func (s *PrometheusSink) AlarmFired(lateness time.Duration) {
	s.firedTotal.Inc()
	s.fireLateness.Observe(lateness.Seconds())
}

func (s *PrometheusSink) FireFailed() {
	s.fireFailuresTotal.Inc()
}

func (s *PrometheusSink) NotificationFailed() {
	s.notificationFailedTotal.Inc()
}

func (s *PrometheusSink) ScheduledAlarms(count int) {
	s.scheduled.Set(float64(count))
}

func (s *PrometheusSink) WakeupArmed(delay time.Duration) {
	s.nextWakeup.Set(delay.Seconds())
}

func (s *PrometheusSink) WakeupDisarmed() {
	s.nextWakeup.Set(0)
}

func (s *PrometheusSink) HistoryPruned(count int) {
	s.prunedTotal.Add(float64(count))
}

func (s *PrometheusSink) StorageError(operation string) {
	s.storageErrorsTotal.WithLabelValues(operation).Inc()
}

var _ Sink = (*PrometheusSink)(nil)
