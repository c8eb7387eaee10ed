// Package client implements the alarm-client subcommands.
//
// Each command loads settings, dials alarm-server through common.Client and
// prints the resulting alarms. ParseTriggerTime turns the --at and --in flags
// into an absolute instant.
package client
