package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/service/client"
	"github.com/oshokin/alarm-clock/internal/version"
)

var (
	// options shared by every subcommand.
	options client.Options
	// logLevel of the client logger.
	logLevel string
	// set holds the flags of the set subcommand.
	set client.SetOptions

	// rootCmd represents the base command for talking to alarm-server.
	rootCmd = &cobra.Command{
		Use:   "alarm-client",
		Short: "Set, cancel and inspect alarms on an alarm-server.",
		Long: `Talks to alarm-server over gRPC.

The server address comes from server_addr in the configuration file
unless --server is given. Times are shown in local time.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			lvl, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(lvl)

			return nil
		},
	}

	setCmd = &cobra.Command{
		Use:   "set",
		Short: "Schedule a one-shot alarm.",
		Long: `Schedules a one-shot alarm.

--at takes a wall-clock HH:MM for today in local time or an RFC 3339 timestamp.
--in takes a delay such as 25m or 1h30m. The trigger time must be in the future.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.Set(cmd.Context(), &options, set)
		},
	}

	cancelCmd = &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a scheduled alarm.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.Cancel(cmd.Context(), &options, args[0])
		},
	}

	getCmd = &cobra.Command{
		Use:   "get <id>",
		Short: "Show one alarm in any state.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.Get(cmd.Context(), &options, args[0])
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List scheduled alarms in firing order.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.List(cmd.Context(), &options)
		},
	}
)

// Execute runs the alarm-client CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)

	err := rootCmd.ExecuteContext(ctx)

	stop()
	logger.Sync()

	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&options.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&options.ServerAddress, "server", "", "alarm-server address, overrides server_addr")
	flags.StringVarP(&logLevel, "log-level", "l", "warn", "log level: debug, info, warn or error")

	setCmd.Flags().StringVar(&set.At, "at", "", "trigger time as HH:MM today or RFC 3339")
	setCmd.Flags().DurationVar(&set.In, "in", 0, "trigger after this delay")
	setCmd.Flags().StringVarP(&set.Message, "message", "m", "", "text shown when the alarm fires")
	setCmd.MarkFlagsMutuallyExclusive("at", "in")
	setCmd.MarkFlagsOneRequired("at", "in")

	rootCmd.AddCommand(setCmd, cancelCmd, getCmd, listCmd)
}
