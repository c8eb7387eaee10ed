package server

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/engine"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/metrics"
	"github.com/oshokin/alarm-clock/internal/notify"
	"github.com/oshokin/alarm-clock/internal/repository/alarms"
)

// service bundles the engine with the resources it owns.
type service struct {
	// engine serves alarm operations.
	engine *engine.Engine
	// store is closed on shutdown when it holds a handle.
	store alarms.Store
}

// newService opens the configured store and builds the engine around it.
// Metrics are registered on reg; a nil reg disables them.
func newService(ctx context.Context, settings *config.Config, reg prometheus.Registerer) (*service, error) {
	store, err := alarms.Open(ctx,
		settings.Store.Driver,
		settings.Store.Path,
		alarms.WithTimeout(settings.Store.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	notifier, err := buildNotifier(settings.Notifier)
	if err != nil {
		closeStore(ctx, store)

		return nil, err
	}

	var sink metrics.Sink = metrics.NoopSink{}
	if reg != nil {
		sink = metrics.NewPrometheusSink(reg)
	}

	e := engine.New(
		engine.Config{
			NotifyTimeout: settings.Notifier.Timeout,
			RetryInterval: settings.RetryInterval,
			Retention:     settings.Retention,
		},
		store,
		notifier,
		engine.WithMetrics(sink),
	)

	return &service{
		engine: e,
		store:  store,
	}, nil
}

// close releases the store handle.
func (s *service) close(ctx context.Context) {
	closeStore(ctx, s.store)
}

// buildNotifier selects the notifier; fired alarms are always logged.
//
//nolint:ireturn // The concrete notifier depends on configuration.
func buildNotifier(settings config.NotifierConfig) (notify.Notifier, error) {
	switch settings.Type {
	case "", notify.TypeLog:
		return notify.LogNotifier{}, nil
	case notify.TypeCommand:
		command, err := notify.NewCommandNotifier(settings.Command, settings.Args)
		if err != nil {
			return nil, fmt.Errorf("build notifier: %w", err)
		}

		return notify.Multi{notify.LogNotifier{}, command}, nil
	default:
		return nil, fmt.Errorf("unknown notifier type %q", settings.Type)
	}
}

func closeStore(ctx context.Context, store alarms.Store) {
	closer, ok := store.(io.Closer)
	if !ok {
		return
	}

	if err := closer.Close(); err != nil {
		logger.WarnKV(ctx, "Unable to close store", "error", err)
	}
}
