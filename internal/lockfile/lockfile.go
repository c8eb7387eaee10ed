package lockfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/alarm-clock/internal/logger"
)

// Suffix is appended to the store path to build the lock path.
const Suffix = ".lock"

// ErrLocked is returned when a live process already holds the lock.
var ErrLocked = errors.New("lock is held by another process")

// Lock is an acquired lock file.
type Lock struct {
	// path to the lock file.
	path string
	// pid written into the file.
	pid int
}

// owner is what a lock file records about its holder.
type owner struct {
	pid        int
	executable string
}

// PathFor returns the lock path guarding the given store path.
func PathFor(storePath string) string {
	return filepath.Clean(storePath) + Suffix
}

// Acquire creates the lock file at path. A file left by a process that is
// no longer running, or whose PID now belongs to another executable, is
// removed and the acquisition retried once.
func Acquire(ctx context.Context, path string) (*Lock, error) {
	self, err := currentOwner()
	if err != nil {
		return nil, err
	}

	for attempt := range 2 {
		err = create(path, self)
		if err == nil {
			logger.DebugKV(ctx, "Lock acquired", "path", path, "pid", self.pid)

			return &Lock{path: path, pid: self.pid}, nil
		}

		if !errors.Is(err, os.ErrExist) || attempt > 0 {
			break
		}

		holder, readErr := read(path)
		if readErr == nil {
			alive, aliveErr := holder.alive()
			if aliveErr != nil {
				return nil, aliveErr
			}

			if alive {
				return nil, fmt.Errorf("%s held by pid %d: %w", path, holder.pid, ErrLocked)
			}
		}

		logger.InfoKV(ctx, "Removing stale lock", "path", path, "pid", holder.pid)

		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale lock: %w", err)
		}
	}

	return nil, fmt.Errorf("create lock %s: %w", path, err)
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release removes the lock file if it still belongs to this process.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}

	holder, err := read(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return err
	}

	if holder.pid != l.pid {
		return nil
	}

	if err = os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release lock: %w", err)
	}

	return nil
}

// alive reports whether the recorded holder is still running.
func (o owner) alive() (bool, error) {
	process, err := ps.FindProcess(o.pid)
	if err != nil {
		return false, fmt.Errorf("find process %d: %w", o.pid, err)
	}

	if process == nil {
		return false, nil
	}

	return o.executable == "" || process.Executable() == o.executable, nil
}

func currentOwner() (owner, error) {
	pid := os.Getpid()

	process, err := ps.FindProcess(pid)
	if err != nil {
		return owner{}, fmt.Errorf("find own process: %w", err)
	}

	self := owner{pid: pid}
	if process != nil {
		self.executable = process.Executable()
	}

	return self, nil
}

// create writes the owner to a temp file and links it into place, so the
// lock never exists without its contents.
func create(path string, o owner) error {
	path = filepath.Clean(path)

	file, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create lock temp file: %w", err)
	}

	tempPath := file.Name()

	// The link, if any, keeps the contents.
	defer func() {
		_ = os.Remove(tempPath)
	}()

	_, err = fmt.Fprintf(file, "%d\n%s\n", o.pid, o.executable)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("write lock: %w", err)
	}

	return os.Link(tempPath, path)
}

func read(path string) (owner, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return owner{}, err
	}

	pidLine, executable, _ := strings.Cut(string(contents), "\n")

	pid, err := strconv.Atoi(strings.TrimSpace(pidLine))
	if err != nil {
		return owner{}, fmt.Errorf("parse lock %s: %w", path, err)
	}

	return owner{
		pid:        pid,
		executable: strings.TrimSpace(executable),
	}, nil
}
