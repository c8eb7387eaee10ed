package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/notify"
	"github.com/oshokin/alarm-clock/internal/repository/alarms"
)

// StoreConfig selects and tunes the alarm store.
type StoreConfig struct {
	// Driver is "file" or "sqlite".
	Driver string `yaml:"driver"`
	// Path is the state file or database location.
	Path string `yaml:"path"`
	// Timeout bounds each store operation.
	Timeout time.Duration `yaml:"timeout"`
}

// NotifierConfig selects how fired alarms reach the user.
type NotifierConfig struct {
	// Type is "log" or "command".
	Type string `yaml:"type"`
	// Command overrides the platform notification tool; empty keeps the default.
	Command string `yaml:"command,omitempty"`
	// Args are passed to Command; {message} and {id} are substituted.
	Args []string `yaml:"args,omitempty"`
	// Timeout bounds one notification attempt.
	Timeout time.Duration `yaml:"timeout"`
}

// Config holds the settings shared by the alarm binaries.
type Config struct {
	// ServerAddress is the gRPC address of alarm-server.
	ServerAddress string `yaml:"server_addr"`
	// Timeout is the client's per-RPC timeout.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// LogFormat is "console" or "json".
	LogFormat string `yaml:"log_format"`
	// MetricsAddress enables the Prometheus endpoint when set.
	MetricsAddress string `yaml:"metrics_addr,omitempty"`
	// Retention is how long fired and canceled alarms are kept; zero keeps them forever.
	Retention time.Duration `yaml:"retention"`
	// RetryInterval is how long the scheduler waits after a store failure.
	RetryInterval time.Duration `yaml:"retry_interval"`
	// Store configures persistence.
	Store StoreConfig `yaml:"store"`
	// Notifier configures notification delivery.
	Notifier NotifierConfig `yaml:"notifier"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "alarm-clock-settings.yaml"

	// DefaultStateFilename is the default file store location.
	DefaultStateFilename = "alarm-clock-state.json"

	// DefaultServerAddress is used when no address is configured.
	DefaultServerAddress = "127.0.0.1:50061"

	// DefaultTimeout is the default duration for RPC calls.
	DefaultTimeout = 5 * time.Second

	// DefaultRetryInterval is the default delay after a store failure.
	DefaultRetryInterval = 5 * time.Second

	// DefaultNotifyTimeout bounds a notification attempt.
	DefaultNotifyTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNegativeDuration is returned for durations below zero.
	errNegativeDuration = errors.New("duration must not be negative")
	// errUnknownStoreDriver is returned for unsupported store drivers.
	errUnknownStoreDriver = errors.New("unknown store driver")
	// errUnknownNotifier is returned for unsupported notifier types.
	errUnknownNotifier = errors.New("unknown notifier type")
	// errUnknownLogLevel is returned when the log level does not parse.
	errUnknownLogLevel = errors.New("unknown log level")
	// errUnknownLogFormat is returned for log formats other than console and json.
	errUnknownLogFormat = errors.New("unknown log format")
)

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := new(Config)

	// Defaults always validate.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
// A missing file at the default location yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultConfigFilename {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills defaults in place.
//
//nolint:cyclop,funlen // A flat list of field checks reads better than helpers.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		settings.ServerAddress = DefaultServerAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server address: %w", err)
	}

	if settings.MetricsAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.MetricsAddress); err != nil {
			return fmt.Errorf("invalid metrics address: %w", err)
		}
	}

	for name, d := range map[string]time.Duration{
		"timeout":          settings.Timeout,
		"retention":        settings.Retention,
		"retry_interval":   settings.RetryInterval,
		"store.timeout":    settings.Store.Timeout,
		"notifier.timeout": settings.Notifier.Timeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s %s: %w", name, d, errNegativeDuration)
		}
	}

	if settings.Timeout == 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.RetryInterval == 0 {
		settings.RetryInterval = DefaultRetryInterval
	}

	if settings.LogLevel == "" {
		settings.LogLevel = "info"
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%q: %w", settings.LogLevel, errUnknownLogLevel)
	}

	switch settings.LogFormat {
	case "":
		settings.LogFormat = logger.FormatConsole
	case logger.FormatConsole, logger.FormatJSON:
	default:
		return fmt.Errorf("%q: %w", settings.LogFormat, errUnknownLogFormat)
	}

	switch settings.Store.Driver {
	case "":
		settings.Store.Driver = alarms.DriverFile
	case alarms.DriverFile, alarms.DriverSQLite:
	default:
		return fmt.Errorf("%q: %w", settings.Store.Driver, errUnknownStoreDriver)
	}

	if settings.Store.Path == "" {
		settings.Store.Path = DefaultStateFilename
	}

	if settings.Store.Timeout == 0 {
		settings.Store.Timeout = alarms.DefaultTimeout
	}

	switch settings.Notifier.Type {
	case "":
		settings.Notifier.Type = notify.TypeLog
	case notify.TypeLog, notify.TypeCommand:
	default:
		return fmt.Errorf("%q: %w", settings.Notifier.Type, errUnknownNotifier)
	}

	if settings.Notifier.Timeout == 0 {
		settings.Notifier.Timeout = DefaultNotifyTimeout
	}

	return nil
}
