package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/alarm-clock/internal/clock"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/metrics"
	"github.com/oshokin/alarm-clock/internal/notify"
	"github.com/oshokin/alarm-clock/internal/repository/alarms"
	"github.com/oshokin/alarm-clock/internal/scheduler"
)

// DefaultNotifyTimeout bounds a single notification attempt.
const DefaultNotifyTimeout = 5 * time.Second

// Config tunes the engine and its scheduler.
type Config struct {
	// NotifyTimeout bounds each notification attempt.
	NotifyTimeout time.Duration
	// RetryInterval is the scheduler's delay after a store failure.
	RetryInterval time.Duration
	// Retention is how long fired and canceled alarms are kept; zero keeps them.
	Retention time.Duration
	// MaxSleep caps one scheduler timer wait; zero uses scheduler.DefaultMaxSleep.
	MaxSleep time.Duration
}

// CreateRequest carries the user's input for a new alarm.
type CreateRequest struct {
	// TriggerTime must be strictly in the future.
	TriggerTime time.Time
	// Message may be empty; domain.DefaultMessage is used then.
	Message string
	// Actor is the requester, optional.
	Actor *domain.Actor
}

// Engine coordinates the store, the scheduler and the notifier.
type Engine struct {
	store         alarms.Store
	scheduler     *scheduler.Scheduler
	notifier      notify.Notifier
	clock         clock.Clock
	metrics       metrics.Sink
	newID         func() (string, error)
	notifyTimeout time.Duration
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithClock replaces the system clock for the engine and its scheduler.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithMetrics sets the metrics sink for the engine and its scheduler.
func WithMetrics(sink metrics.Sink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.metrics = sink
		}
	}
}

// WithIDGenerator replaces UUIDv7 id generation.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// New wires an engine around store and notifier. A nil notifier logs alarms.
func New(cfg Config, store alarms.Store, notifier notify.Notifier, opts ...Option) *Engine {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}

	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}

	e := &Engine{
		store:         store,
		notifier:      notifier,
		clock:         clock.System{},
		metrics:       metrics.NoopSink{},
		newID:         newUUIDv7,
		notifyTimeout: cfg.NotifyTimeout,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.scheduler = scheduler.New(
		scheduler.Config{
			RetryInterval: cfg.RetryInterval,
			Retention:     cfg.Retention,
			MaxSleep:      cfg.MaxSleep,
		},
		store,
		e.handleFire,
		scheduler.WithClock(e.clock),
		scheduler.WithMetrics(e.metrics),
	)

	return e
}

// Run recovers pending alarms from the store and serves wake-ups until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	return e.scheduler.Run(ctx)
}

// NextWakeup reports when the scheduler wakes next.
func (e *Engine) NextWakeup() (time.Time, bool) {
	return e.scheduler.NextWakeup()
}

// CreateAlarm registers a scheduled alarm and returns it.
func (e *Engine) CreateAlarm(ctx context.Context, req CreateRequest) (domain.Alarm, error) {
	now := e.clock.Now()
	if !req.TriggerTime.After(now) {
		return domain.Alarm{}, fmt.Errorf(
			"create alarm at %s (now %s): %w",
			req.TriggerTime.Format(time.RFC3339),
			now.Format(time.RFC3339),
			domain.ErrInvalidTime,
		)
	}

	id, err := e.newID()
	if err != nil {
		return domain.Alarm{}, fmt.Errorf("generate alarm id: %w", err)
	}

	a := domain.New(id, req.TriggerTime.UTC(), req.Message, now.UTC(), req.Actor)
	ctx = logger.WithKV(ctx, "alarm_id", a.ID)

	err = e.scheduler.Update(ctx, func(ctx context.Context) error {
		return e.store.Put(ctx, a)
	})
	if err != nil {
		logger.ErrorKV(ctx, "Failed to create alarm", "error", err)
		e.metrics.StorageError(metrics.OperationCreate)

		return domain.Alarm{}, fmt.Errorf("create alarm: %w", err)
	}

	logger.InfoKV(ctx, "Alarm created",
		"trigger_time", a.TriggerTime.Format(time.RFC3339),
		"message", a.Message,
		"actor", a.CreatedBy.String(),
	)
	e.metrics.AlarmCreated()

	return a.Clone(), nil
}

// CancelAlarm cancels a scheduled alarm. Canceling an alarm that already
// fired or was canceled succeeds and changes nothing.
func (e *Engine) CancelAlarm(ctx context.Context, id string) (domain.Alarm, error) {
	ctx = logger.WithKV(ctx, "alarm_id", id)

	var (
		result   domain.Alarm
		canceled bool
	)

	err := e.scheduler.Update(ctx, func(ctx context.Context) error {
		a, err := e.store.Get(ctx, id)
		if err != nil {
			return err
		}

		if a.IsTerminal() {
			result = a

			return nil
		}

		if err = a.Cancel(e.clock.Now().UTC()); err != nil {
			return err
		}

		if err = e.store.Put(ctx, a); err != nil {
			return err
		}

		result, canceled = a, true

		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.ErrorKV(ctx, "Failed to cancel alarm", "error", err)
			e.metrics.StorageError(metrics.OperationCancel)
		}

		return domain.Alarm{}, fmt.Errorf("cancel alarm: %w", err)
	}

	if canceled {
		logger.Info(ctx, "Alarm canceled")
		e.metrics.AlarmCanceled()
	} else {
		logger.DebugKV(ctx, "Alarm already closed, nothing to cancel", "state", result.State)
	}

	return result, nil
}

// GetAlarm returns one alarm in any state.
func (e *Engine) GetAlarm(ctx context.Context, id string) (domain.Alarm, error) {
	a, err := e.store.Get(ctx, id)
	if err != nil {
		return domain.Alarm{}, fmt.Errorf("get alarm: %w", err)
	}

	return a, nil
}

// ListAlarms returns the scheduled alarms ordered by trigger time. It has no side effects.
func (e *Engine) ListAlarms(ctx context.Context) ([]domain.Alarm, error) {
	var result []domain.Alarm

	for a, err := range e.store.ListScheduled(ctx) {
		if err != nil {
			e.metrics.StorageError(metrics.OperationList)

			return nil, fmt.Errorf("list alarms: %w", err)
		}

		result = append(result, a)
	}

	return result, nil
}

// handleFire makes the single notification attempt for a fired alarm.
// Delivery is already decided by the stored transition; failures are only logged.
// The attempt outlives the request that triggered the recompute.
func (e *Engine) handleFire(ctx context.Context, a domain.Alarm) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.notifyTimeout)
	defer cancel()

	n := notify.Notification{
		AlarmID:     a.ID,
		Message:     a.Message,
		TriggerTime: a.TriggerTime,
	}

	if err := e.notifier.Notify(ctx, n); err != nil {
		logger.ErrorKV(ctx, "Alarm notification failed", "error", fmt.Errorf("%w: %w", domain.ErrNotificationFailed, err))
		e.metrics.NotificationFailed()
	}
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	return id.String(), nil
}
