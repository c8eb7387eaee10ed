package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/oshokin/alarm-clock/internal/config"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/service/common"
)

// Options configures how the client reaches the server.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Out receives command output, os.Stdout when nil.
	Out io.Writer

	// dialOptions are passed to common.Dial; tests use them to inject a dialer.
	dialOptions []common.Option
}

// SetOptions describes the alarm to create.
type SetOptions struct {
	// At is a wall-clock "HH:MM" for today or an RFC 3339 timestamp.
	At string
	// In is a delay from now; used when At is empty.
	In time.Duration
	// Message is shown when the alarm fires.
	Message string
}

var (
	// errTriggerRequired is returned when neither --at nor --in is given.
	errTriggerRequired = errors.New("either --at or --in must be provided")
	// errTriggerConflict is returned when both --at and --in are given.
	errTriggerConflict = errors.New("--at and --in are mutually exclusive")
	// errBadClockTime is returned for malformed HH:MM values.
	errBadClockTime = errors.New("expected HH:MM or RFC 3339 time")
)

// Set creates an alarm and prints it.
func Set(ctx context.Context, opts *Options, set SetOptions) error {
	ctx = logger.WithName(ctx, "alarm-client/set")

	triggerTime, err := ParseTriggerTime(set.At, set.In, time.Now())
	if err != nil {
		return err
	}

	// Identify current user and hostname for the audit trail.
	actor, err := common.DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Unable to detect actor", "error", err)
	}

	return withClient(ctx, opts, func(client *common.Client) error {
		created, err := client.CreateAlarm(ctx, triggerTime, set.Message, actor)
		if err != nil {
			return err
		}

		logger.DebugKV(ctx, "Alarm created", "id", created.ID, "trigger_time", created.TriggerTime)

		return printAlarms(opts.output(), created)
	})
}

// Cancel cancels an alarm by id and prints its final state.
func Cancel(ctx context.Context, opts *Options, id string) error {
	ctx = logger.WithName(ctx, "alarm-client/cancel")

	return withClient(ctx, opts, func(client *common.Client) error {
		canceled, err := client.CancelAlarm(ctx, id)
		if err != nil {
			return err
		}

		return printAlarms(opts.output(), canceled)
	})
}

// Get prints one alarm in any state.
func Get(ctx context.Context, opts *Options, id string) error {
	ctx = logger.WithName(ctx, "alarm-client/get")

	return withClient(ctx, opts, func(client *common.Client) error {
		found, err := client.GetAlarm(ctx, id)
		if err != nil {
			return err
		}

		return printAlarms(opts.output(), found)
	})
}

// List prints scheduled alarms in firing order.
func List(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "alarm-client/list")

	return withClient(ctx, opts, func(client *common.Client) error {
		list, err := client.ListAlarms(ctx)
		if err != nil {
			return err
		}

		if len(list) == 0 {
			_, err = fmt.Fprintln(opts.output(), "No alarms scheduled.")

			return err
		}

		return printAlarms(opts.output(), list...)
	})
}

// ParseTriggerTime resolves the --at and --in flags against now.
// "HH:MM" is today at that wall-clock time in now's location, even when
// it has already passed; the server rejects past trigger times.
func ParseTriggerTime(at string, in time.Duration, now time.Time) (time.Time, error) {
	switch {
	case at != "" && in != 0:
		return time.Time{}, errTriggerConflict
	case at == "" && in == 0:
		return time.Time{}, errTriggerRequired
	case at == "":
		return now.Add(in), nil
	}

	if t, err := time.Parse(time.RFC3339, at); err == nil {
		return t, nil
	}

	hours, minutes, ok := strings.Cut(at, ":")
	if !ok {
		return time.Time{}, fmt.Errorf("%q: %w", at, errBadClockTime)
	}

	hour, err := strconv.Atoi(hours)
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("%q: %w", at, errBadClockTime)
	}

	minute, err := strconv.Atoi(minutes)
	if err != nil || minute < 0 || minute > 59 || len(minutes) != 2 {
		return time.Time{}, fmt.Errorf("%q: %w", at, errBadClockTime)
	}

	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location()), nil
}

// withClient loads settings, dials the server and runs fn with the connection.
func withClient(ctx context.Context, opts *Options, fn func(*common.Client) error) error {
	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	// Use server address from options if provided, otherwise use config.
	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	dialOptions := append([]common.Option{common.WithCallTimeout(cfg.Timeout)}, opts.dialOptions...)

	client, err := common.Dial(ctx, serverAddress, dialOptions...)
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Connected to alarm server", "server_address", serverAddress)

	return fn(client)
}

func (o *Options) output() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}

	return o.Out
}

// printAlarms renders alarms as an aligned table.
func printAlarms(out io.Writer, list ...domain.Alarm) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "ID\tTRIGGER\tSTATE\tMESSAGE\tCREATED BY")

	for _, a := range list {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			a.ID,
			a.TriggerTime.Local().Format(time.DateTime),
			a.State,
			a.Message,
			a.CreatedBy,
		)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("print alarms: %w", err)
	}

	return nil
}
