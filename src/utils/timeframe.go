package utils

import (
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Chart timeframes supported by the candle aggregator.
// -----------------------------------------------------------------------------

var timeframeDurations = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// -----------------------------------------------------------------------------

// TimeframeDuration resolves a timeframe name ("1m", "5m", ...) to its bucket
// duration.
func TimeframeDuration(timeframe string) (time.Duration, error) {
	d, ok := timeframeDurations[timeframe]
	if !ok {
		return 0, fmt.Errorf("unknown timeframe: %s", timeframe)
	}
	return d, nil
}

// -----------------------------------------------------------------------------

// BucketStart floors a timestamp to the start of its timeframe bucket:
// floor(ts / duration) * duration.
func BucketStart(ts time.Time, duration time.Duration) time.Time {
	return ts.Truncate(duration)
}

// -----------------------------------------------------------------------------

// BucketBoundaries returns the start and end of the bucket containing ts.
func BucketBoundaries(ts time.Time, duration time.Duration) (time.Time, time.Time) {
	start := BucketStart(ts, duration)
	return start, start.Add(duration)
}
