package cache

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/injunweb/injunctl/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mapBackend struct {
	mu      sync.Mutex
	entries map[string]domain.CacheEntry
}

func newMapBackend() *mapBackend {
	return &mapBackend{entries: make(map[string]domain.CacheEntry)}
}

func (b *mapBackend) GetCacheEntry(_ context.Context, key string) (domain.CacheEntry, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[key]
	return e, ok, nil
}

func (b *mapBackend) PutCacheEntry(_ context.Context, e domain.CacheEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[e.Key] = e
	return nil
}

func (b *mapBackend) DeleteCacheEntries(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		delete(b.entries, k)
	}
	return nil
}

func (b *mapBackend) DeleteCacheEntriesByPrefix(_ context.Context, prefix string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k := range b.entries {
		if strings.HasPrefix(k, prefix) {
			delete(b.entries, k)
		}
	}
	return nil
}

func (b *mapBackend) ClearCacheEntries(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.entries)
	return nil
}

func counter[T any](v T, calls *atomic.Int32) func(context.Context) (T, error) {
	return func(context.Context) (T, error) {
		calls.Add(1)
		return v, nil
	}
}

func TestQueryServesFreshValueUntilTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := New(WithClock(clock.Now), WithTTL(10*time.Second))
	ctx := context.Background()
	var calls atomic.Int32
	fetch := counter([]string{"a"}, &calls)

	for range 3 {
		v, err := Query(ctx, c, KeyApplications, fetch)
		if err != nil || len(v) != 1 {
			t.Fatalf("Query: %v %v", v, err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 fetch, got %d", got)
	}

	clock.Advance(10 * time.Second)
	if _, err := Query(ctx, c, KeyApplications, fetch); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected refetch after TTL, got %d fetches", got)
	}
}

func TestQueryErrorIsNotCached(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()
	boom := errors.New("boom")
	_, err := Query(ctx, c, KeyUser, func(context.Context) (string, error) { return "", boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, ok := Peek[string](ctx, c, KeyUser); ok {
		t.Fatal("expected nothing cached after a failed fetch")
	}
}

func TestConcurrentQueriesShareOneFetch(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()
	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Query(ctx, c, KeyNotifications, fetch)
			if err != nil {
				t.Errorf("Query: %v", err)
			}
			results[i] = v
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single fetch, got %d", got)
	}
	for _, v := range results {
		if v != 42 {
			t.Fatalf("unexpected results %v", results)
		}
	}
}

func TestInvalidateKeepsValueVisibleButRefetches(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()
	var calls atomic.Int32
	SetData(ctx, c, Application("1"), "old")

	c.Invalidate(ctx, Application("1"))
	if v, ok := Peek[string](ctx, c, Application("1")); !ok || v != "old" {
		t.Fatalf("expected stale value to stay visible, got %q %v", v, ok)
	}
	v, err := Query(ctx, c, Application("1"), counter("new", &calls))
	if err != nil || v != "new" || calls.Load() != 1 {
		t.Fatalf("expected refetch, got %q %v (%d calls)", v, err, calls.Load())
	}
}

func TestInvalidatePrefix(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()
	SetData(ctx, c, AdminUser("1"), 1)
	SetData(ctx, c, AdminApplication("2"), 2)
	SetData(ctx, c, KeyApplications, 3)

	c.InvalidatePrefix(ctx, "admin:")
	var calls atomic.Int32
	if _, err := Query(ctx, c, AdminUser("1"), counter(10, &calls)); err != nil {
		t.Fatal(err)
	}
	if _, err := Query(ctx, c, KeyApplications, counter(30, &calls)); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected only the admin key to refetch, got %d fetches", got)
	}
}

func TestClearDiscardsInFlightResult(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Query(ctx, c, KeyUser, func(context.Context) (string, error) {
			close(started)
			<-release
			return "alice", nil
		})
	}()
	<-started
	c.Clear(ctx)
	close(release)
	<-done

	if _, ok := Peek[string](ctx, c, KeyUser); ok {
		t.Fatal("expected a fetch started before Clear not to repopulate the cache")
	}
}

func TestOptimisticRollbackSkippedAfterClear(t *testing.T) {
	t.Parallel()

	backend := newMapBackend()
	c := New(WithBackend(backend))
	ctx := context.Background()
	SetData(ctx, c, KeyApplications, []string{"A", "B", "C"})

	err := Optimistic(ctx, c, KeyApplications,
		func(list []string) []string { return list[:1] },
		func(ctx context.Context) error {
			c.Clear(ctx)
			return domain.ErrUnauthorized
		},
		func(context.Context) ([]string, error) { return nil, errors.New("offline") },
	)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if got, ok := Peek[[]string](ctx, c, KeyApplications); ok {
		t.Fatalf("expected cleared cache to stay empty, got %v", got)
	}
	if _, ok, _ := backend.GetCacheEntry(ctx, string(KeyApplications)); ok {
		t.Fatal("expected rollback not to persist after clear")
	}
}

func TestBackendServesNewProcess(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	backend := newMapBackend()
	ctx := context.Background()
	first := New(WithBackend(backend), WithClock(clock.Now))
	var calls atomic.Int32
	if _, err := Query(ctx, first, KeyApplications, counter([]string{"a", "b"}, &calls)); err != nil {
		t.Fatal(err)
	}

	second := New(WithBackend(backend), WithClock(clock.Now))
	v, err := Query(ctx, second, KeyApplications, counter([]string{"x"}, &calls))
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 || !slices.Equal(v, []string{"a", "b"}) {
		t.Fatalf("expected persisted value without fetch, got %v (%d calls)", v, calls.Load())
	}

	clock.Advance(DefaultTTL)
	third := New(WithBackend(backend), WithClock(clock.Now))
	if _, err := Query(ctx, third, KeyApplications, counter([]string{"x"}, &calls)); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected expired persisted entry to refetch, got %d calls", calls.Load())
	}

	third.Clear(ctx)
	if len(backend.entries) != 0 {
		t.Fatalf("expected Clear to empty the backend, got %d entries", len(backend.entries))
	}
}

func TestOptimisticDeleteRollsBackOnFailure(t *testing.T) {
	t.Parallel()

	c := New(WithBackend(newMapBackend()))
	ctx := context.Background()
	server := []string{"A", "B", "C"}
	SetData(ctx, c, KeyApplications, slices.Clone(server))

	removeB := func(list []string) []string {
		return slices.DeleteFunc(slices.Clone(list), func(s string) bool { return s == "B" })
	}
	var during []string
	failure := errors.New("server unavailable")
	err := Optimistic(ctx, c, KeyApplications, removeB,
		func(ctx context.Context) error {
			during, _ = Peek[[]string](ctx, c, KeyApplications)
			return failure
		},
		func(context.Context) ([]string, error) { return slices.Clone(server), nil },
	)
	if !errors.Is(err, failure) {
		t.Fatalf("expected mutation error, got %v", err)
	}
	if !slices.Equal(during, []string{"A", "C"}) {
		t.Fatalf("expected optimistic list [A C] during mutation, got %v", during)
	}
	got, _ := Peek[[]string](ctx, c, KeyApplications)
	if !slices.Equal(got, []string{"A", "B", "C"}) {
		t.Fatalf("expected rollback to [A B C], got %v", got)
	}
}

func TestOptimisticRestoresSnapshotWhenRefetchAlsoFails(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()
	SetData(ctx, c, KeyApplications, []string{"A", "B", "C"})

	err := Optimistic(ctx, c, KeyApplications,
		func(list []string) []string { return list[:1] },
		func(context.Context) error { return errors.New("delete failed") },
		func(context.Context) ([]string, error) { return nil, errors.New("offline") },
	)
	if err == nil {
		t.Fatal("expected mutation error")
	}
	got, ok := Peek[[]string](ctx, c, KeyApplications)
	if !ok || !slices.Equal(got, []string{"A", "B", "C"}) {
		t.Fatalf("expected exact snapshot, got %v", got)
	}
}

func TestOptimisticDeleteReconcilesOnSuccess(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()
	server := []string{"A", "B", "C"}
	SetData(ctx, c, KeyApplications, slices.Clone(server))

	err := Optimistic(ctx, c, KeyApplications,
		func(list []string) []string {
			return slices.DeleteFunc(slices.Clone(list), func(s string) bool { return s == "B" })
		},
		func(context.Context) error {
			server = []string{"A", "C"}
			return nil
		},
		func(context.Context) ([]string, error) { return slices.Clone(server), nil },
	)
	if err != nil {
		t.Fatal(err)
	}
	var calls atomic.Int32
	got, err := Query(ctx, c, KeyApplications, counter([]string{"stale"}, &calls))
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 0 || !slices.Equal(got, []string{"A", "C"}) {
		t.Fatalf("expected reconciled list [A C] from refetch, got %v (%d calls)", got, calls.Load())
	}
}

func TestBeginRejectsDuplicateMutation(t *testing.T) {
	t.Parallel()

	c := New()
	done, err := c.Begin("delete-application", "7")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Begin("delete-application", "7"); !errors.Is(err, domain.ErrMutationInFlight) {
		t.Fatalf("expected ErrMutationInFlight, got %v", err)
	}
	other, err := c.Begin("delete-application", "8")
	if err != nil {
		t.Fatalf("expected other resource to be free: %v", err)
	}
	other()

	done()
	done()
	again, err := c.Begin("delete-application", "7")
	if err != nil {
		t.Fatalf("expected release after done: %v", err)
	}
	again()
}
