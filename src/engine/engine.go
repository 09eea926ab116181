package engine

import (
	"container/heap"
	"fmt"
	"sync"
	"time"

	"market-sync/src/interfaces"
	"market-sync/src/logger"
	"market-sync/src/models"

	"golang.org/x/sync/singleflight"
)

// -----------------------------------------------------------------------------
// RequestEngine - generic cache + single-flight dedup + priority-weighted,
// concurrency-limited scheduler for network fetch tasks.
//
// Invariants:
//   - a cache entry is honored only while now < ExpiresAt
//   - at most one in-flight execution exists per key when dedup is enabled
//   - highest priority weight runs first, FIFO among equal priorities
// -----------------------------------------------------------------------------

type RequestEngine struct {
	Logger *logger.Logger

	mu             sync.Mutex
	cache          map[string]models.MCacheEntry
	queue          taskHeap
	seq            uint64
	active         int
	maxConcurrency int
	defaultTTL     time.Duration

	// singleflight coalesces concurrent callers of the same key into one
	// scheduled execution; the key is evicted on completion so the next
	// call starts a fresh attempt.
	flight singleflight.Group

	clock interfaces.IClock
	idle  interfaces.IdleSignaler
}

// -----------------------------------------------------------------------------

func NewRequestEngine(cfg models.MEngineConfig, clock interfaces.IClock, idle interfaces.IdleSignaler, log *logger.Logger) *RequestEngine {
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}

	return &RequestEngine{
		Logger:         log,
		cache:          make(map[string]models.MCacheEntry),
		queue:          make(taskHeap, 0),
		maxConcurrency: maxConcurrency,
		defaultTTL:     time.Duration(cfg.DefaultTTLSeconds) * time.Second,
		clock:          clock,
		idle:           idle,
	}
}

// -----------------------------------------------------------------------------

// Request runs task under the engine's caching, dedup and scheduling rules and
// returns its result. Blocks until the task (or the coalesced execution it
// joined) completes.
func (e *RequestEngine) Request(key string, task func() (any, error), opts models.MRequestOptions) (any, error) {
	// 1. Cache hit: return immediately without scheduling
	if opts.Cache {
		if value, ok := e.cachedValue(key); ok {
			return value, nil
		}
	}

	// 2. Dedup: join the pending execution for this key if one exists
	if opts.Dedupe {
		value, err, _ := e.flight.Do(key, func() (any, error) {
			return e.execute(key, task, opts)
		})
		return value, err
	}

	return e.execute(key, task, opts)
}

// -----------------------------------------------------------------------------

// Fetch is the typed wrapper around Request.
func Fetch[T any](e *RequestEngine, key string, task func() (T, error), opts models.MRequestOptions) (T, error) {
	var zero T

	value, err := e.Request(key, func() (any, error) { return task() }, opts)
	if err != nil {
		return zero, err
	}

	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("request %s: cached value has type %T", key, value)
	}
	return typed, nil
}

// -----------------------------------------------------------------------------

// Prefetch is a fire-and-forget Request whose failure is logged, never
// propagated.
func (e *RequestEngine) Prefetch(key string, task func() (any, error), opts models.MRequestOptions) {
	go func() {
		if _, err := e.Request(key, task, opts); err != nil {
			e.Logger.Warning("Prefetch %s failed: %v", key, err)
		}
	}()
}

// -----------------------------------------------------------------------------

// Invalidate drops the given cached entries, or clears the entire cache when
// no key is given. In-flight work is not affected.
func (e *RequestEngine) Invalidate(keys ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(keys) == 0 {
		e.cache = make(map[string]models.MCacheEntry)
		return
	}
	for _, key := range keys {
		delete(e.cache, key)
	}
}

// -----------------------------------------------------------------------------

// SetConcurrency changes the scheduling limit and immediately re-runs the
// drain loop so queued work can use the new headroom.
func (e *RequestEngine) SetConcurrency(n int) {
	if n <= 0 {
		return
	}

	e.mu.Lock()
	e.maxConcurrency = n
	e.drainLocked()
	e.mu.Unlock()
}

// -----------------------------------------------------------------------------

// PendingCount reports queued-but-not-started tasks.
func (e *RequestEngine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

func (e *RequestEngine) cachedValue(key string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.cache[key]
	if !ok {
		return nil, false
	}
	if !e.clock.Now().Before(entry.ExpiresAt) {
		delete(e.cache, key)
		return nil, false
	}
	return entry.Value, true
}

// -----------------------------------------------------------------------------

// execute enqueues the task and blocks until the scheduler has run it.
func (e *RequestEngine) execute(key string, task func() (any, error), opts models.MRequestOptions) (any, error) {
	type outcome struct {
		value any
		err   error
	}
	result := make(chan outcome, 1)

	queued := &queuedTask{
		key:    key,
		weight: opts.Priority.Weight(),
		run:    task,
		done: func(value any, err error) {
			if err == nil && opts.Cache {
				e.storeResult(key, value, opts.TTL)
			}
			result <- outcome{value: value, err: err}
		},
	}

	if opts.DeferToIdle {
		// Postponed until the host signals non-urgent work is safe; the
		// concurrency limit still applies once the deferred work begins.
		e.idle(func() { e.enqueue(queued) })
	} else {
		e.enqueue(queued)
	}

	out := <-result
	return out.value, out.err
}

// -----------------------------------------------------------------------------

func (e *RequestEngine) storeResult(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = e.defaultTTL
	}
	if ttl <= 0 {
		return
	}

	e.mu.Lock()
	e.cache[key] = models.MCacheEntry{
		Value:     value,
		ExpiresAt: e.clock.Now().Add(ttl),
	}
	e.mu.Unlock()
}

// -----------------------------------------------------------------------------

func (e *RequestEngine) enqueue(task *queuedTask) {
	e.mu.Lock()
	e.seq++
	task.seq = e.seq
	heap.Push(&e.queue, task)
	e.drainLocked()
	e.mu.Unlock()
}

// -----------------------------------------------------------------------------

// drainLocked starts queued tasks while slots are free. Iterative on purpose:
// task completion re-enters the drain, and a recursive variant would deepen
// with the queue length. Caller must hold e.mu.
func (e *RequestEngine) drainLocked() {
	for e.active < e.maxConcurrency && e.queue.Len() > 0 {
		task := heap.Pop(&e.queue).(*queuedTask)
		e.active++

		go func(t *queuedTask) {
			value, err := t.run()

			e.mu.Lock()
			e.active--
			e.drainLocked()
			e.mu.Unlock()

			t.done(value, err)
		}(task)
	}
}
