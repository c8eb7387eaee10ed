package alarms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"time"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// DefaultFilePermissions is applied to the state file.
const DefaultFilePermissions = 0o600

// fileFormatVersion is written into every document.
const fileFormatVersion = 1

// document is the on-disk layout of the state file.
type document struct {
	// Version is the layout revision.
	Version int `json:"version"`
	// Alarms holds every record, sorted by id.
	Alarms []domain.Alarm `json:"alarms"`
}

// FileStore persists alarm records to a JSON file on disk.
// Writes replace the file atomically, so readers never take a lock and
// always observe a complete document.
type FileStore struct {
	// path is the filesystem location of the JSON state file.
	path string
	// writer serializes writers; acquiring it honors the context deadline.
	writer chan struct{}
	// timeout bounds each operation.
	timeout time.Duration
}

// NewFileStore creates a store that reads/writes JSON at the provided path.
// The file is created on the first write.
func NewFileStore(path string, opts ...Option) *FileStore {
	o := buildOptions(opts)

	return &FileStore{
		path:    filepath.Clean(path),
		writer:  make(chan struct{}, 1),
		timeout: o.timeout,
	}
}

// Path returns the state file location.
func (s *FileStore) Path() string {
	return s.path
}

// Put inserts or replaces the record.
func (s *FileStore) Put(ctx context.Context, a domain.Alarm) error {
	return s.mutate(ctx, "put alarm", func(records map[string]domain.Alarm) (bool, error) {
		records[a.ID] = a.Clone()

		return true, nil
	})
}

// Get returns the record for id.
func (s *FileStore) Get(ctx context.Context, id string) (domain.Alarm, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	records, err := s.read(ctx)
	if err != nil {
		return domain.Alarm{}, unavailable("get alarm", err)
	}

	a, ok := records[id]
	if !ok {
		return domain.Alarm{}, fmt.Errorf("get alarm %s: %w", id, domain.ErrNotFound)
	}

	return a, nil
}

// Delete removes the record for id.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete alarm", func(records map[string]domain.Alarm) (bool, error) {
		if _, ok := records[id]; !ok {
			return false, fmt.Errorf("delete alarm %s: %w", id, domain.ErrNotFound)
		}

		delete(records, id)

		return true, nil
	})
}

// ListScheduled yields scheduled records from a fresh read of the file.
func (s *FileStore) ListScheduled(ctx context.Context) iter.Seq2[domain.Alarm, error] {
	return func(yield func(domain.Alarm, error) bool) {
		readCtx, cancel := context.WithTimeout(ctx, s.timeout)
		records, err := s.read(readCtx)

		cancel()

		if err != nil {
			failed(unavailable("list scheduled alarms", err))(yield)

			return
		}

		scheduled := make([]domain.Alarm, 0, len(records))
		for _, a := range records {
			if a.State == domain.StateScheduled {
				scheduled = append(scheduled, a)
			}
		}

		slices.SortFunc(scheduled, domain.Compare)

		for _, a := range scheduled {
			if !yield(a, nil) {
				return
			}
		}
	}
}

// Prune removes terminal records closed before the cutoff.
func (s *FileStore) Prune(ctx context.Context, closedBefore time.Time) (int, error) {
	var removed int

	err := s.mutate(ctx, "prune alarms", func(records map[string]domain.Alarm) (bool, error) {
		for id, a := range records {
			if a.IsTerminal() && a.ClosedAt.Before(closedBefore) {
				delete(records, id)

				removed++
			}
		}

		return removed > 0, nil
	})
	if err != nil {
		return 0, err
	}

	return removed, nil
}

// mutate runs change against the current records under the writer lock and
// writes the result back when change reports a modification. Errors returned
// by change are passed through unwrapped.
func (s *FileStore) mutate(
	ctx context.Context,
	op string,
	change func(map[string]domain.Alarm) (bool, error),
) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	select {
	case s.writer <- struct{}{}:
	case <-ctx.Done():
		return unavailable(op, ctx.Err())
	}

	defer func() { <-s.writer }()

	records, err := s.read(ctx)
	if err != nil {
		return unavailable(op, err)
	}

	modified, err := change(records)
	if err != nil {
		return err
	}

	if !modified {
		return nil
	}

	if err = s.write(ctx, records); err != nil {
		return unavailable(op, err)
	}

	return nil
}

// read loads every record; a missing file is an empty store.
func (s *FileStore) read(ctx context.Context) (map[string]domain.Alarm, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contents, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]domain.Alarm), nil
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var doc document
	if err = json.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	records := make(map[string]domain.Alarm, len(doc.Alarms))
	for _, a := range doc.Alarms {
		records[a.ID] = a
	}

	return records, nil
}

// write replaces the state file with a temp file rename.
func (s *FileStore) write(ctx context.Context, records map[string]domain.Alarm) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := document{
		Version: fileFormatVersion,
		Alarms:  make([]domain.Alarm, 0, len(records)),
	}

	for _, a := range records {
		doc.Alarms = append(doc.Alarms, a)
	}

	slices.SortFunc(doc.Alarms, func(a, b domain.Alarm) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	tmpName := tmp.Name()

	// Remove the temp file on every failure path; after a successful rename it is gone already.
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("write temp state file: %w", err)
	}

	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("sync temp state file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err = os.Chmod(tmpName, DefaultFilePermissions); err != nil {
		return fmt.Errorf("chmod temp state file: %w", err)
	}

	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	syncDir(dir)

	return nil
}

// syncDir flushes the directory entry of a renamed file where the OS allows it.
func syncDir(dir string) {
	d, err := os.Open(filepath.Clean(dir))
	if err != nil {
		return
	}

	_ = d.Sync()
	_ = d.Close()
}
