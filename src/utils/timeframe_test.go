package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeframeDuration(t *testing.T) {
	d, err := TimeframeDuration("5m")
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, d)

	_, err = TimeframeDuration("7m")
	require.Error(t, err)

	_, err = TimeframeDuration("")
	require.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestBucketStartFloorsToDuration(t *testing.T) {
	ts := time.Date(2024, 6, 3, 14, 33, 47, 12345, time.UTC)

	require.Equal(t, time.Date(2024, 6, 3, 14, 33, 0, 0, time.UTC), BucketStart(ts, time.Minute))
	require.Equal(t, time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC), BucketStart(ts, 5*time.Minute))
	require.Equal(t, time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC), BucketStart(ts, time.Hour))

	// A timestamp already on the boundary maps to itself.
	boundary := time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)
	require.Equal(t, boundary, BucketStart(boundary, 5*time.Minute))
}

// -----------------------------------------------------------------------------

func TestBucketBoundaries(t *testing.T) {
	ts := time.Date(2024, 6, 3, 14, 33, 47, 0, time.UTC)

	start, end := BucketBoundaries(ts, 15*time.Minute)
	require.Equal(t, time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2024, 6, 3, 14, 45, 0, 0, time.UTC), end)
}
