package alarms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"time"

	// Registers the "sqlite3" database/sql driver.
	_ "github.com/mattn/go-sqlite3"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

const (
	sqliteSchema = `
CREATE TABLE IF NOT EXISTS alarms (
	id              TEXT PRIMARY KEY,
	trigger_time_ns INTEGER NOT NULL,
	message         TEXT    NOT NULL,
	state           TEXT    NOT NULL,
	created_at_ns   INTEGER NOT NULL,
	closed_at_ns    INTEGER,
	created_by_host TEXT,
	created_by_user TEXT
);
CREATE INDEX IF NOT EXISTS idx_alarms_state_trigger ON alarms (state, trigger_time_ns, id);
`

	sqlitePut = `
INSERT INTO alarms (id, trigger_time_ns, message, state, created_at_ns, closed_at_ns, created_by_host, created_by_user)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	trigger_time_ns = excluded.trigger_time_ns,
	message         = excluded.message,
	state           = excluded.state,
	created_at_ns   = excluded.created_at_ns,
	closed_at_ns    = excluded.closed_at_ns,
	created_by_host = excluded.created_by_host,
	created_by_user = excluded.created_by_user`

	sqliteColumns = `id, trigger_time_ns, message, state, created_at_ns, closed_at_ns, created_by_host, created_by_user`

	sqliteGet = `SELECT ` + sqliteColumns + ` FROM alarms WHERE id = ?`

	sqliteListScheduled = `SELECT ` + sqliteColumns + ` FROM alarms WHERE state = ? ORDER BY trigger_time_ns, id`

	sqliteDelete = `DELETE FROM alarms WHERE id = ?`

	sqlitePrune = `DELETE FROM alarms WHERE state IN (?, ?) AND closed_at_ns < ?`
)

// SQLiteStore persists alarm records in an embedded SQLite database.
// The database runs in WAL mode: readers do not block the single writer.
type SQLiteStore struct {
	// db is the connection pool.
	db *sql.DB
	// timeout bounds each operation.
	timeout time.Duration
}

// NewSQLiteStore opens (creating if needed) the database at path and migrates the schema.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	o := buildOptions(opts)

	busyTimeout := o.timeout.Milliseconds()
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=FULL", filepath.Clean(path), busyTimeout)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, unavailable("open alarm database", err)
	}

	s := &SQLiteStore{
		db:      db,
		timeout: o.timeout,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err = db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()

		return nil, unavailable("migrate alarm database", err)
	}

	return s, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Put inserts or replaces the record.
func (s *SQLiteStore) Put(ctx context.Context, a domain.Alarm) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var host, user sql.NullString
	if a.CreatedBy != nil {
		host = sql.NullString{String: a.CreatedBy.Hostname, Valid: true}
		user = sql.NullString{String: a.CreatedBy.Username, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, sqlitePut,
		a.ID,
		a.TriggerTime.UnixNano(),
		a.Message,
		string(a.State),
		a.CreatedAt.UnixNano(),
		nullableNanos(a.ClosedAt),
		host,
		user,
	)
	if err != nil {
		return unavailable("put alarm", err)
	}

	return nil
}

// Get returns the record for id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (domain.Alarm, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	a, err := scanAlarm(s.db.QueryRowContext(ctx, sqliteGet, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Alarm{}, fmt.Errorf("get alarm %s: %w", id, domain.ErrNotFound)
		}

		return domain.Alarm{}, unavailable("get alarm", err)
	}

	return a, nil
}

// Delete removes the record for id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, sqliteDelete, id)
	if err != nil {
		return unavailable("delete alarm", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("delete alarm", err)
	}

	if n == 0 {
		return fmt.Errorf("delete alarm %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListScheduled streams scheduled rows straight from the query cursor.
func (s *SQLiteStore) ListScheduled(ctx context.Context) iter.Seq2[domain.Alarm, error] {
	return func(yield func(domain.Alarm, error) bool) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		rows, err := s.db.QueryContext(ctx, sqliteListScheduled, string(domain.StateScheduled))
		if err != nil {
			yield(domain.Alarm{}, unavailable("list scheduled alarms", err))

			return
		}

		defer func() {
			_ = rows.Close()
		}()

		for rows.Next() {
			a, err := scanAlarm(rows)
			if err != nil {
				yield(domain.Alarm{}, unavailable("scan scheduled alarm", err))

				return
			}

			if !yield(a, nil) {
				return
			}
		}

		if err = rows.Err(); err != nil {
			yield(domain.Alarm{}, unavailable("list scheduled alarms", err))
		}
	}
}

// Prune removes terminal records closed before the cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, closedBefore time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, sqlitePrune,
		string(domain.StateFired),
		string(domain.StateCanceled),
		closedBefore.UnixNano(),
	)
	if err != nil {
		return 0, unavailable("prune alarms", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("prune alarms", err)
	}

	return int(n), nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlarm(row rowScanner) (domain.Alarm, error) {
	var (
		a            domain.Alarm
		state        string
		triggerNanos int64
		createdNanos int64
		closedNanos  sql.NullInt64
		host, user   sql.NullString
	)

	if err := row.Scan(&a.ID, &triggerNanos, &a.Message, &state, &createdNanos, &closedNanos, &host, &user); err != nil {
		return domain.Alarm{}, err
	}

	a.State = domain.State(state)
	a.TriggerTime = time.Unix(0, triggerNanos).UTC()
	a.CreatedAt = time.Unix(0, createdNanos).UTC()

	if closedNanos.Valid {
		a.ClosedAt = time.Unix(0, closedNanos.Int64).UTC()
	}

	if host.Valid || user.Valid {
		a.CreatedBy = &domain.Actor{
			Hostname: host.String,
			Username: user.String,
		}
	}

	return a, nil
}

func nullableNanos(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}
