package scheduler

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/oshokin/alarm-clock/internal/clock"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/metrics"
)

// Store is the subset of the alarm store the scheduler uses.
type Store interface {
	Put(ctx context.Context, a domain.Alarm) error
	ListScheduled(ctx context.Context) iter.Seq2[domain.Alarm, error]
	Prune(ctx context.Context, closedBefore time.Time) (int, error)
}

// FireFunc is called once for every alarm after its fired state is persisted.
// It runs with the scheduler lock held, in trigger time then id order.
type FireFunc func(ctx context.Context, a domain.Alarm)

const (
	// DefaultRetryInterval is the delay before retrying after a store failure.
	DefaultRetryInterval = 5 * time.Second
	// DefaultMaxSleep caps a single timer wait.
	DefaultMaxSleep = time.Minute
)

// Config tunes the scheduler.
type Config struct {
	// RetryInterval is how long to wait before recomputing after a store failure.
	RetryInterval time.Duration
	// Retention is how long terminal alarms are kept; zero keeps them forever.
	Retention time.Duration
	// MaxSleep caps each timer wait so the wall clock is re-read regularly.
	// Timers follow the monotonic clock, which stops while the host sleeps.
	MaxSleep time.Duration
}

// Scheduler owns the wake-up timer for the soonest scheduled alarm.
type Scheduler struct {
	cfg     Config
	store   Store
	clock   clock.Clock
	onFire  FireFunc
	metrics metrics.Sink

	// mu is the single writer domain for store mutations and recomputation.
	mu sync.Mutex
	// timer is the armed wake-up, nil when disarmed.
	timer clock.Timer
	// armedAt is the instant the timer fires at.
	armedAt time.Time
	// wake receives a value whenever the timer fires.
	wake chan struct{}
}

// Option configures optional scheduler collaborators.
type Option func(*Scheduler)

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(sink metrics.Sink) Option {
	return func(s *Scheduler) {
		if sink != nil {
			s.metrics = sink
		}
	}
}

// New creates a scheduler. Nothing is armed until Run or Update is called.
func New(cfg Config, store Store, onFire FireFunc, opts ...Option) *Scheduler {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}

	if cfg.MaxSleep <= 0 {
		cfg.MaxSleep = DefaultMaxSleep
	}

	if onFire == nil {
		onFire = func(context.Context, domain.Alarm) {}
	}

	s := &Scheduler{
		cfg:     cfg,
		store:   store,
		clock:   clock.System{},
		onFire:  onFire,
		metrics: metrics.NoopSink{},
		wake:    make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Update runs mutate under the scheduler lock and, if it succeeds, recomputes
// the next wake-up before returning. A nil mutate only recomputes.
// The error from mutate is returned unchanged; recomputation failures are
// retried in the background and never fail the call.
func (s *Scheduler) Update(ctx context.Context, mutate func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mutate != nil {
		if err := mutate(ctx); err != nil {
			return err
		}
	}

	s.reconcileLocked(ctx)

	return nil
}

// Run recovers the schedule from the store and then serves wake-ups until
// ctx is done. Overdue alarms found at startup fire immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "scheduler")

	logger.Info(ctx, "Scheduler started")

	s.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.disarmLocked()
			s.mu.Unlock()

			logger.Info(ctx, "Scheduler stopped")

			return nil
		case <-s.wake:
			s.cycle(ctx)
		}
	}
}

// NextWakeup returns the armed wake-up instant, if any.
func (s *Scheduler) NextWakeup() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.armedAt, s.timer != nil
}

// cycle is one wake-up: apply retention, then recompute.
func (s *Scheduler) cycle(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(ctx)
	s.reconcileLocked(ctx)
}

// reconcileLocked fires every overdue alarm in order and arms the timer for
// the earliest remaining one.
func (s *Scheduler) reconcileLocked(ctx context.Context) {
	now := s.clock.Now()

	var (
		due      []domain.Alarm
		next     time.Time
		pending  int
		failures int
	)

	for a, err := range s.store.ListScheduled(ctx) {
		if err != nil {
			logger.ErrorKV(ctx, "Failed to list scheduled alarms", "error", err)
			s.metrics.StorageError(metrics.OperationList)
			s.armLocked(now.Add(s.cfg.RetryInterval))

			return
		}

		if a.IsDue(now) {
			due = append(due, a)

			continue
		}

		if next.IsZero() {
			next = a.TriggerTime
		}

		pending++
	}

	for _, a := range due {
		if !s.fireLocked(ctx, a, now) {
			failures++
		}
	}

	s.metrics.ScheduledAlarms(pending + failures)

	if failures > 0 {
		retryAt := now.Add(s.cfg.RetryInterval)
		if next.IsZero() || retryAt.Before(next) {
			next = retryAt
		}
	}

	if next.IsZero() {
		s.disarmLocked()

		return
	}

	s.armLocked(next)
}

// fireLocked persists the fired state and then hands the alarm to onFire.
// It reports whether the transition was stored.
func (s *Scheduler) fireLocked(ctx context.Context, a domain.Alarm, now time.Time) bool {
	ctx = logger.WithKV(ctx, "alarm_id", a.ID)

	if err := a.Fire(now); err != nil {
		logger.ErrorKV(ctx, "Refusing to fire alarm", "error", err)

		return false
	}

	if err := s.store.Put(ctx, a); err != nil {
		// The alarm stays scheduled and is retried; no notification without a stored transition.
		logger.ErrorKV(ctx, "Failed to persist fired alarm", "error", err)
		s.metrics.FireFailed()
		s.metrics.StorageError(metrics.OperationFire)

		return false
	}

	lateness := now.Sub(a.TriggerTime)

	logger.InfoKV(ctx, "Alarm fired",
		"trigger_time", a.TriggerTime.Format(time.RFC3339Nano),
		"lateness", lateness.String(),
	)
	s.metrics.AlarmFired(lateness)

	s.onFire(ctx, a)

	return true
}

// pruneLocked applies the retention policy.
func (s *Scheduler) pruneLocked(ctx context.Context) {
	if s.cfg.Retention <= 0 {
		return
	}

	cutoff := s.clock.Now().Add(-s.cfg.Retention)

	n, err := s.store.Prune(ctx, cutoff)
	if err != nil {
		logger.WarnKV(ctx, "Failed to prune alarm history", "error", err)
		s.metrics.StorageError(metrics.OperationPrune)

		return
	}

	if n > 0 {
		logger.InfoKV(ctx, "Pruned alarm history", "removed", n, "closed_before", cutoff.Format(time.RFC3339))
		s.metrics.HistoryPruned(n)
	}
}

// armLocked replaces any outstanding timer with one waking for at. The wait
// is capped at MaxSleep; an early wake recomputes and arms again.
func (s *Scheduler) armLocked(at time.Time) {
	if s.timer != nil {
		s.timer.Stop()
	}

	delay := clock.Until(s.clock, at)

	s.timer = s.clock.AfterFunc(min(delay, s.cfg.MaxSleep), s.signal)
	s.armedAt = at

	s.metrics.WakeupArmed(delay)
}

func (s *Scheduler) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}

	s.timer = nil
	s.armedAt = time.Time{}

	s.metrics.WakeupDisarmed()
}

// signal wakes Run; a pending signal already covers this one.
func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
