package alarms

import (
	"context"
	"fmt"
	"iter"
	"time"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// Store defines persistence operations for alarm records.
type Store interface {
	// Put inserts or replaces the record for a.ID.
	Put(ctx context.Context, a domain.Alarm) error
	// Get returns the record or domain.ErrNotFound.
	Get(ctx context.Context, id string) (domain.Alarm, error)
	// Delete removes the record or returns domain.ErrNotFound.
	Delete(ctx context.Context, id string) error
	// ListScheduled yields scheduled records ordered by trigger time, then id.
	// Each range over the sequence re-scans the current state.
	ListScheduled(ctx context.Context) iter.Seq2[domain.Alarm, error]
	// Prune removes terminal records closed before the cutoff.
	Prune(ctx context.Context, closedBefore time.Time) (int, error)
}

const (
	// DriverFile selects FileStore.
	DriverFile = "file"
	// DriverSQLite selects SQLiteStore.
	DriverSQLite = "sqlite"

	// DefaultTimeout bounds a single store operation.
	DefaultTimeout = 3 * time.Second
)

// Option configures a store.
type Option func(*options)

type options struct {
	timeout time.Duration
}

// WithTimeout bounds every store operation. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Open creates the store selected by driver.
//
//nolint:ireturn // Callers pick the backend from configuration.
func Open(ctx context.Context, driver, path string, opts ...Option) (Store, error) {
	switch driver {
	case "", DriverFile:
		return NewFileStore(path, opts...), nil
	case DriverSQLite:
		return NewSQLiteStore(ctx, path, opts...)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// unavailable wraps an I/O failure so callers can match domain.ErrStorageUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}

// failed yields a single error and stops.
func failed(err error) iter.Seq2[domain.Alarm, error] {
	return func(yield func(domain.Alarm, error) bool) {
		yield(domain.Alarm{}, err)
	}
}
