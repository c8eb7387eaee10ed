package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

const (
	// placeholderMessage is replaced with the alarm message in command arguments.
	placeholderMessage = "{message}"
	// placeholderID is replaced with the alarm id in command arguments.
	placeholderID = "{id}"

	// notificationTitle is shown by desktop notifiers that take a title.
	notificationTitle = "Alarm"
)

// ErrUnsupportedOS indicates there is no default notifier command for this OS.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// CommandNotifier runs an external program for every notification and waits for it.
type CommandNotifier struct {
	// name is the executable to run.
	name string
	// args may contain {message} and {id} placeholders.
	args []string
}

// NewCommandNotifier builds a notifier for a configured command.
// An empty name selects the platform default:
// - Linux:   `notify-send -u critical Alarm <message>`
// - macOS:   `osascript` running `display notification` with the message in argv
// - Windows: `msg * <message>`
func NewCommandNotifier(name string, args []string) (*CommandNotifier, error) {
	if name != "" {
		return &CommandNotifier{name: name, args: args}, nil
	}

	name, args, err := defaultCommand(runtime.GOOS)
	if err != nil {
		return nil, err
	}

	return &CommandNotifier{name: name, args: args}, nil
}

// Notify runs the command once; the context bounds how long it may take.
func (c *CommandNotifier) Notify(ctx context.Context, n Notification) error {
	cmd := exec.CommandContext(ctx, c.name, c.expand(n)...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		out := strings.TrimSpace(string(output))
		if out != "" {
			return fmt.Errorf("run %s: %w: %s", c.name, err, out)
		}

		return fmt.Errorf("run %s: %w", c.name, err)
	}

	return nil
}

// expand substitutes placeholders in every argument.
func (c *CommandNotifier) expand(n Notification) []string {
	replacer := strings.NewReplacer(placeholderMessage, n.Message, placeholderID, n.AlarmID)

	args := make([]string, 0, len(c.args))
	for _, arg := range c.args {
		args = append(args, replacer.Replace(arg))
	}

	return args
}

// defaultCommand picks the desktop notification tool for goos.
func defaultCommand(goos string) (string, []string, error) {
	osName := strings.ToLower(goos)

	switch {
	case strings.Contains(osName, "linux") || strings.Contains(osName, "bsd"):
		return "notify-send", []string{"-u", "critical", notificationTitle, placeholderMessage}, nil
	case strings.Contains(osName, "darwin"):
		// The message goes through argv so quotes in it cannot break the script.
		return "osascript", []string{
			"-e", "on run argv",
			"-e", fmt.Sprintf("display notification (item 1 of argv) with title %q", notificationTitle),
			"-e", "end run",
			placeholderMessage,
		}, nil
	case strings.Contains(osName, "windows"):
		return "msg", []string{"*", placeholderMessage}, nil
	default:
		return "", nil, fmt.Errorf("no notifier command for %s: %w", goos, ErrUnsupportedOS)
	}
}
