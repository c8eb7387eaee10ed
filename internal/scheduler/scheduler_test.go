package scheduler

import (
	"context"
	"errors"
	"iter"
	"slices"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-clock/internal/clock"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

var errTestStorage = errors.New("test storage error")

// memoryStore is a minimal in-memory Store with failure injection.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]domain.Alarm
	// failPuts makes the next n Put calls fail.
	failPuts int
	// failLists makes the next n ListScheduled calls fail.
	failLists int
	pruned    []time.Time
}

func newMemoryStore(alarms ...domain.Alarm) *memoryStore {
	m := &memoryStore{records: make(map[string]domain.Alarm)}
	for _, a := range alarms {
		m.records[a.ID] = a
	}

	return m
}

func (m *memoryStore) Put(_ context.Context, a domain.Alarm) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failPuts > 0 {
		m.failPuts--

		return errTestStorage
	}

	m.records[a.ID] = a

	return nil
}

func (m *memoryStore) ListScheduled(context.Context) iter.Seq2[domain.Alarm, error] {
	return func(yield func(domain.Alarm, error) bool) {
		m.mu.Lock()

		if m.failLists > 0 {
			m.failLists--
			m.mu.Unlock()
			yield(domain.Alarm{}, errTestStorage)

			return
		}

		var scheduled []domain.Alarm

		for _, a := range m.records {
			if a.State == domain.StateScheduled {
				scheduled = append(scheduled, a)
			}
		}

		m.mu.Unlock()

		slices.SortFunc(scheduled, domain.Compare)

		for _, a := range scheduled {
			if !yield(a, nil) {
				return
			}
		}
	}
}

func (m *memoryStore) Prune(_ context.Context, closedBefore time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruned = append(m.pruned, closedBefore)

	var n int

	for id, a := range m.records {
		if a.IsTerminal() && a.ClosedAt.Before(closedBefore) {
			delete(m.records, id)

			n++
		}
	}

	return n, nil
}

func (m *memoryStore) prunes() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.pruned)
}

func (m *memoryStore) get(id string) domain.Alarm {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.records[id]
}

// recorder collects fired alarm ids in call order.
type recorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *recorder) fire(_ context.Context, a domain.Alarm) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ids = append(r.ids, a.ID)
}

func (r *recorder) fired() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.ids)
}

// start runs the scheduler in the bubble and returns its stop function.
func start(t *testing.T, s *Scheduler) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		_ = s.Run(ctx)
	}()

	synctest.Wait()

	return func() {
		cancel()
		<-done
	}
}

func scheduled(id string, at time.Time) domain.Alarm {
	return domain.New(id, at, "", at.Add(-time.Hour), nil)
}

// TestScheduler_FiresInTriggerOrder creates alarms out of order and checks delivery order.
func TestScheduler_FiresInTriggerOrder(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		store := newMemoryStore()
		rec := new(recorder)
		s := New(Config{}, store, rec.fire)

		stop := start(t, s)
		defer stop()

		now := time.Now()

		for _, a := range []domain.Alarm{scheduled("late", now.Add(5*time.Second)), scheduled("early", now.Add(time.Second))} {
			require.NoError(t, s.Update(context.Background(), func(ctx context.Context) error {
				return store.Put(ctx, a)
			}))
		}

		at, armed := s.NextWakeup()
		require.True(t, armed)
		require.True(t, at.Equal(now.Add(time.Second)))

		time.Sleep(2 * time.Second)
		synctest.Wait()
		require.Equal(t, []string{"early"}, rec.fired())

		at, armed = s.NextWakeup()
		require.True(t, armed)
		require.True(t, at.Equal(now.Add(5*time.Second)))

		time.Sleep(4 * time.Second)
		synctest.Wait()
		require.Equal(t, []string{"early", "late"}, rec.fired())
		require.Equal(t, domain.StateFired, store.get("early").State)
		require.Equal(t, domain.StateFired, store.get("late").State)

		_, armed = s.NextWakeup()
		require.False(t, armed)
	})
}

// TestScheduler_SameTriggerTime fires ties in one cycle ordered by id.
func TestScheduler_SameTriggerTime(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		at := time.Now().Add(time.Minute)
		store := newMemoryStore(scheduled("b", at), scheduled("c", at), scheduled("a", at))
		rec := new(recorder)

		stop := start(t, New(Config{}, store, rec.fire))
		defer stop()

		require.Empty(t, rec.fired())

		time.Sleep(time.Minute)
		synctest.Wait()

		require.Equal(t, []string{"a", "b", "c"}, rec.fired())
	})
}

// TestScheduler_RestartFiresOverdue fires alarms whose time passed while the process was down.
func TestScheduler_RestartFiresOverdue(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		now := time.Now()
		store := newMemoryStore(
			scheduled("second", now.Add(-time.Minute)),
			scheduled("first", now.Add(-time.Hour)),
			scheduled("future", now.Add(time.Hour)),
		)
		rec := new(recorder)
		s := New(Config{}, store, rec.fire)

		stop := start(t, s)
		defer stop()

		require.Equal(t, []string{"first", "second"}, rec.fired())

		at, armed := s.NextWakeup()
		require.True(t, armed)
		require.True(t, at.Equal(now.Add(time.Hour)))
	})
}

// TestScheduler_ReArmsOnRemoval re-arms for the next alarm, then disarms, before Update returns.
func TestScheduler_ReArmsOnRemoval(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		now := time.Now()
		store := newMemoryStore(scheduled("a", now.Add(time.Second)), scheduled("b", now.Add(time.Minute)))
		rec := new(recorder)
		s := New(Config{}, store, rec.fire)

		require.NoError(t, s.Update(context.Background(), nil))

		at, _ := s.NextWakeup()
		require.True(t, at.Equal(now.Add(time.Second)))

		cancel := func(id string) func(context.Context) error {
			return func(ctx context.Context) error {
				a := store.get(id)
				if err := a.Cancel(time.Now()); err != nil {
					return err
				}

				return store.Put(ctx, a)
			}
		}

		require.NoError(t, s.Update(context.Background(), cancel("a")))

		at, armed := s.NextWakeup()
		require.True(t, armed)
		require.True(t, at.Equal(now.Add(time.Minute)))

		require.NoError(t, s.Update(context.Background(), cancel("b")))

		_, armed = s.NextWakeup()
		require.False(t, armed)

		time.Sleep(2 * time.Minute)
		synctest.Wait()
		require.Empty(t, rec.fired())
	})
}

// TestScheduler_MutationErrorSkipsRecompute returns the mutation error unchanged.
func TestScheduler_MutationErrorSkipsRecompute(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		s := New(Config{}, newMemoryStore(scheduled("a", time.Now().Add(time.Second))), nil)

		err := s.Update(context.Background(), func(context.Context) error { return errTestStorage })
		require.ErrorIs(t, err, errTestStorage)

		_, armed := s.NextWakeup()
		require.False(t, armed)
	})
}

// TestScheduler_FirePersistFailure never notifies without a stored transition and retries later.
func TestScheduler_FirePersistFailure(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		store := newMemoryStore(scheduled("a", time.Now().Add(-time.Second)))
		store.failPuts = 1

		rec := new(recorder)
		s := New(Config{RetryInterval: 10 * time.Second}, store, rec.fire)

		stop := start(t, s)
		defer stop()

		require.Empty(t, rec.fired())
		require.Equal(t, domain.StateScheduled, store.get("a").State)

		time.Sleep(10 * time.Second)
		synctest.Wait()

		require.Equal(t, []string{"a"}, rec.fired())
		require.Equal(t, domain.StateFired, store.get("a").State)

		// Fired exactly once, even after more wake-ups.
		s.signal()
		synctest.Wait()
		require.Equal(t, []string{"a"}, rec.fired())
	})
}

// TestScheduler_ListFailureRetries keeps running after the store goes away for a while.
func TestScheduler_ListFailureRetries(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		store := newMemoryStore(scheduled("a", time.Now().Add(-time.Second)))
		store.failLists = 2

		rec := new(recorder)

		stop := start(t, New(Config{RetryInterval: time.Second}, store, rec.fire))
		defer stop()

		require.Empty(t, rec.fired())

		time.Sleep(time.Second)
		synctest.Wait()
		require.Empty(t, rec.fired())

		time.Sleep(time.Second)
		synctest.Wait()
		require.Equal(t, []string{"a"}, rec.fired())
	})
}

// TestScheduler_Retention prunes terminal history on each wake cycle.
func TestScheduler_Retention(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		now := time.Now()

		old := scheduled("old", now.Add(-48*time.Hour))
		require.NoError(t, old.Fire(now.Add(-48*time.Hour)))

		store := newMemoryStore(old)

		stop := start(t, New(Config{Retention: 24 * time.Hour}, store, nil))
		defer stop()

		prunes := store.prunes()
		require.Len(t, prunes, 1)
		require.True(t, prunes[0].Equal(now.Add(-24*time.Hour)))
		require.Empty(t, store.get("old").ID)
	})
}

// skewedClock is the bubble clock with the wall time pushed ahead, the way
// it looks after the host slept while monotonic timers stood still.
type skewedClock struct {
	mu   sync.Mutex
	skew time.Duration
}

func (c *skewedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return time.Now().Add(c.skew)
}

//nolint:ireturn // Matches clock.Clock.
func (c *skewedClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	return time.AfterFunc(d, f)
}

func (c *skewedClock) jump(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.skew += d
}

// TestScheduler_WallClockJump fires on the wall clock after the host was suspended.
func TestScheduler_WallClockJump(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		base := time.Now()
		store := newMemoryStore(scheduled("a", base.Add(8*time.Hour)))
		rec := new(recorder)
		c := new(skewedClock)

		s := New(Config{MaxSleep: time.Minute}, store, rec.fire, WithClock(c))

		stop := start(t, s)
		defer stop()

		at, armed := s.NextWakeup()
		require.True(t, armed)
		require.True(t, at.Equal(base.Add(8*time.Hour)))

		// Two hours of suspend: the wall clock is ahead of every timer.
		c.jump(2 * time.Hour)

		time.Sleep(6*time.Hour + time.Minute)
		synctest.Wait()

		require.Equal(t, []string{"a"}, rec.fired())
		require.Equal(t, domain.StateFired, store.get("a").State)
	})
}

// TestScheduler_MaxSleepKeepsTarget reports the alarm instant while waking in short steps.
func TestScheduler_MaxSleepKeepsTarget(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		at := time.Now().Add(time.Hour)
		store := newMemoryStore(scheduled("a", at))
		rec := new(recorder)
		s := New(Config{MaxSleep: 10 * time.Minute}, store, rec.fire)

		stop := start(t, s)
		defer stop()

		time.Sleep(30 * time.Minute)
		synctest.Wait()

		next, armed := s.NextWakeup()
		require.True(t, armed)
		require.True(t, next.Equal(at))
		require.Empty(t, rec.fired())

		time.Sleep(30 * time.Minute)
		synctest.Wait()
		require.Equal(t, []string{"a"}, rec.fired())
	})
}
