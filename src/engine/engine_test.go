package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"market-sync/src/logger"
	"market-sync/src/models"
	"market-sync/src/utils"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Test doubles
// -----------------------------------------------------------------------------

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------

func newTestEngine(maxConcurrency int, clock *fakeClock) *RequestEngine {
	cfg := models.MEngineConfig{MaxConcurrency: maxConcurrency}
	return NewRequestEngine(cfg, clock, utils.ImmediateIdle, logger.NewLogger("engine-test"))
}

// -----------------------------------------------------------------------------

func waitPending(t *testing.T, e *RequestEngine, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.PendingCount() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("pending count never reached %d (now %d)", want, e.PendingCount())
}

// -----------------------------------------------------------------------------
// Dedup
// -----------------------------------------------------------------------------

func TestRequestDedupeSharesOneExecution(t *testing.T) {
	e := newTestEngine(4, newFakeClock())

	var calls int32
	release := make(chan struct{})
	slowTask := func() (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "v1", nil
	}

	opts := models.MRequestOptions{Priority: models.PriorityNormal, Dedupe: true}

	var wg sync.WaitGroup
	results := make([]any, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value, err := e.Request("k", slowTask, opts)
			require.NoError(t, err)
			results[i] = value
		}(i)
	}

	// Let both callers attach before the task resolves.
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&calls) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.Equal(t, "v1", results[0])
	require.Equal(t, results[0], results[1])
}

// -----------------------------------------------------------------------------
// TTL
// -----------------------------------------------------------------------------

func TestCacheHonorsTTL(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(4, clock)

	var calls int32
	task := func() (any, error) {
		n := atomic.AddInt32(&calls, 1)
		return int(n), nil
	}

	opts := models.MRequestOptions{Priority: models.PriorityNormal, Cache: true, Dedupe: true, TTL: time.Second}

	v1, err := e.Request("k", task, opts)
	require.NoError(t, err)
	require.Equal(t, 1, v1)

	clock.Advance(500 * time.Millisecond)
	v2, err := e.Request("k", task, opts)
	require.NoError(t, err)
	require.Equal(t, 1, v2)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))

	clock.Advance(time.Second)
	v3, err := e.Request("k", task, opts)
	require.NoError(t, err)
	require.Equal(t, 2, v3)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

// -----------------------------------------------------------------------------
// Priority ordering
// -----------------------------------------------------------------------------

func TestPriorityOrderingWithFIFOTieBreak(t *testing.T) {
	e := newTestEngine(1, newFakeClock())

	// Occupy the single slot so everything else queues up.
	blockerStarted := make(chan struct{})
	release := make(chan struct{})
	blockerDone := make(chan struct{})
	go func() {
		defer close(blockerDone)
		_, err := e.Request("blocker", func() (any, error) {
			close(blockerStarted)
			<-release
			return nil, nil
		}, models.MRequestOptions{Priority: models.PriorityNormal})
		require.NoError(t, err)
	}()
	<-blockerStarted

	var mu sync.Mutex
	var order []string

	submit := func(name string, priority models.MPriority, queued int) {
		go func() {
			_, _ = e.Request(name, func() (any, error) {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				return nil, nil
			}, models.MRequestOptions{Priority: priority})
		}()
		waitPending(t, e, queued)
	}

	submit("low", models.PriorityLow, 1)
	submit("high-1", models.PriorityHigh, 2)
	submit("critical", models.PriorityCritical, 3)
	submit("normal", models.PriorityNormal, 4)
	submit("high-2", models.PriorityHigh, 5)

	close(release)
	<-blockerDone
	waitPending(t, e, 0)

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(order)
		mu.Unlock()
		if n == 5 || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"critical", "high-1", "high-2", "normal", "low"}, order)
}

// -----------------------------------------------------------------------------
// Failure semantics
// -----------------------------------------------------------------------------

func TestFailureEvictsInFlightKey(t *testing.T) {
	e := newTestEngine(4, newFakeClock())

	var calls int32
	opts := models.MRequestOptions{Priority: models.PriorityNormal, Cache: true, Dedupe: true, TTL: time.Minute}

	_, err := e.Request("k", func() (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("boom")
	}, opts)
	require.Error(t, err)

	// Next call starts a fresh attempt; nothing was cached.
	value, err := e.Request("k", func() (any, error) {
		atomic.AddInt32(&calls, 1)
		return "ok", nil
	}, opts)
	require.NoError(t, err)
	require.Equal(t, "ok", value)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

// -----------------------------------------------------------------------------
// Invalidate
// -----------------------------------------------------------------------------

func TestInvalidateDropsEntries(t *testing.T) {
	e := newTestEngine(4, newFakeClock())

	var calls int32
	task := func() (any, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}
	opts := models.MRequestOptions{Priority: models.PriorityNormal, Cache: true, Dedupe: true, TTL: time.Minute}

	_, err := e.Request("a", task, opts)
	require.NoError(t, err)
	_, err = e.Request("b", task, opts)
	require.NoError(t, err)

	e.Invalidate("a")

	_, err = e.Request("a", task, opts)
	require.NoError(t, err)
	_, err = e.Request("b", task, opts)
	require.NoError(t, err)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))

	e.Invalidate()
	_, err = e.Request("b", task, opts)
	require.NoError(t, err)
	require.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

// -----------------------------------------------------------------------------
// Defer to idle
// -----------------------------------------------------------------------------

func TestDeferToIdlePostponesExecution(t *testing.T) {
	var mu sync.Mutex
	var idleWork []func()
	idle := func(run func()) {
		mu.Lock()
		idleWork = append(idleWork, run)
		mu.Unlock()
	}

	cfg := models.MEngineConfig{MaxConcurrency: 4}
	e := NewRequestEngine(cfg, newFakeClock(), idle, logger.NewLogger("engine-test"))

	var ran atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := e.Request("k", func() (any, error) {
			ran.Store(true)
			return nil, nil
		}, models.MRequestOptions{Priority: models.PriorityLow, DeferToIdle: true})
		require.NoError(t, err)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(idleWork)
		mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	require.False(t, ran.Load(), "task must not run before the idle signal")

	mu.Lock()
	require.Len(t, idleWork, 1)
	work := idleWork[0]
	mu.Unlock()

	work()
	<-done
	require.True(t, ran.Load())
}

// -----------------------------------------------------------------------------
// Typed wrapper + concurrency changes
// -----------------------------------------------------------------------------

func TestFetchReturnsTypedValue(t *testing.T) {
	e := newTestEngine(4, newFakeClock())

	value, err := Fetch(e, "k", func() ([]string, error) {
		return []string{"AAPL", "MSFT"}, nil
	}, models.MRequestOptions{Priority: models.PriorityNormal})
	require.NoError(t, err)
	require.Equal(t, []string{"AAPL", "MSFT"}, value)
}

func TestSetConcurrencyDrainsQueue(t *testing.T) {
	e := newTestEngine(1, newFakeClock())

	blockerStarted := make(chan struct{})
	release := make(chan struct{})
	go e.Request("blocker", func() (any, error) {
		close(blockerStarted)
		<-release
		return nil, nil
	}, models.MRequestOptions{Priority: models.PriorityNormal})
	<-blockerStarted

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = e.Request("queued", func() (any, error) { return nil, nil }, models.MRequestOptions{Priority: models.PriorityNormal})
	}()
	waitPending(t, e, 1)

	// Raising the limit must start the queued task without waiting for the
	// blocker to finish.
	e.SetConcurrency(2)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued task did not start after SetConcurrency")
	}

	close(release)
}
