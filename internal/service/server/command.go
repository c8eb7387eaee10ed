package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/lockfile"
	"github.com/oshokin/alarm-clock/internal/logger"
)

// Options controls the alarm-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// StorePath overrides the store location from settings.
	StorePath string
	// LogLevel overrides the log level from settings.
	LogLevel string
	// OnListen is called with the bound gRPC address once the listener is ready.
	OnListen func(net.Addr)
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// metricsShutdownTimeout bounds the metrics listener shutdown.
const metricsShutdownTimeout = 5 * time.Second

// Run starts the engine and the gRPC server and blocks until the context is
// canceled or one of them fails.
//
//nolint:funlen // Process wiring reads best top to bottom.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-server")

	// Load configuration first to get server settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.LogLevel != "" {
		settings.LogLevel = opts.LogLevel
	}

	lvl, ok := logger.ParseLogLevel(settings.LogLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", settings.LogLevel)
	}

	logger.Configure(settings.LogFormat, lvl)

	// Use the store path from config unless overridden by command line option.
	if opts.StorePath != "" {
		settings.Store.Path = opts.StorePath
	}

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	// One server per store.
	lock, err := lockfile.Acquire(ctx, lockfile.PathFor(settings.Store.Path))
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}

	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			logger.WarnKV(ctx, "Unable to release lock", "path", lock.Path(), "error", releaseErr)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, err := newService(ctx, settings, registry)
	if err != nil {
		return fmt.Errorf("initialise service: %w", err)
	}

	defer svc.close(ctx)

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	// Create and configure gRPC server with alarm service.
	grpcServer := grpc.NewServer()
	api.RegisterAlarmServiceServer(grpcServer, api.NewServer(svc.engine))

	logger.InfoKV(ctx, "Alarm server listening",
		"listen_address", lis.Addr().String(),
		"store_driver", settings.Store.Driver,
		"store_path", settings.Store.Path,
		"notifier", settings.Notifier.Type,
	)

	if opts.OnListen != nil {
		opts.OnListen(lis.Addr())
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return svc.engine.Run(groupCtx)
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()

		return nil
	})

	group.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	if settings.MetricsAddress != "" {
		metricsServer := &http.Server{
			Addr:              settings.MetricsAddress,
			Handler:           metricsHandler(registry),
			ReadHeaderTimeout: metricsShutdownTimeout,
		}

		group.Go(func() error {
			logger.InfoKV(ctx, "Metrics listening", "metrics_address", settings.MetricsAddress)

			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve metrics: %w", err)
			}

			return nil
		})

		group.Go(func() error {
			<-groupCtx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
			defer cancel()

			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	err = group.Wait()

	logger.Info(ctx, "Alarm server stopped")

	return err
}

// metricsHandler serves the registry at /metrics.
func metricsHandler(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	return mux
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "0.0.0.0:8080").
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	host, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Loopback stays loopback; anything else binds on all interfaces.
	if ip := net.ParseIP(host); host == "localhost" || (ip != nil && ip.IsLoopback()) {
		return configAddr, nil
	}

	return ":" + port, nil
}
