package utils

import (
	"sync"
	"time"

	"market-sync/src/interfaces"
)

// -----------------------------------------------------------------------------
// SystemClock - wall-clock implementation of IClock
// -----------------------------------------------------------------------------

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// -----------------------------------------------------------------------------
// TimerScheduler - time.AfterFunc backed implementation of ITickScheduler
// -----------------------------------------------------------------------------

type TimerScheduler struct{}

// Schedule runs fn once after delay. The returned CancelFunc is idempotent.
func (TimerScheduler) Schedule(delay time.Duration, fn func()) interfaces.CancelFunc {
	timer := time.AfterFunc(delay, fn)

	var once sync.Once
	return func() {
		once.Do(func() {
			timer.Stop()
		})
	}
}

// -----------------------------------------------------------------------------
// ImmediateIdle - default IdleSignaler that runs work right away
// -----------------------------------------------------------------------------

func ImmediateIdle(run func()) {
	run()
}
