package interfaces

import "time"

// -----------------------------------------------------------------------------
// Time abstractions. Both the engine's TTL bookkeeping and the simulated
// provider's tick schedules go through these so tests can substitute a
// virtual clock instead of relying on wall-clock delays.
// -----------------------------------------------------------------------------

// IClock provides the current time.
type IClock interface {
	Now() time.Time
}

// -----------------------------------------------------------------------------

// CancelFunc stops a scheduled task. Safe to call more than once.
type CancelFunc func()

// -----------------------------------------------------------------------------

// ITickScheduler runs a function once after a delay and returns a handle to
// cancel it before it fires.
type ITickScheduler interface {
	Schedule(delay time.Duration, fn func()) CancelFunc
}

// -----------------------------------------------------------------------------

// IdleSignaler postpones non-urgent work until the host signals it is safe to
// run it. The default implementation runs the callback immediately.
type IdleSignaler func(run func())
