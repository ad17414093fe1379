package utils

import (
	"math"
	"time"
)

// -----------------------------------------------------------------------------

// Defaults for in-memory realtime history.
// One hour of samples at the 30s poll interval is 120 points.
const (
	DefaultHistoryWindow = time.Hour
	RealtimeStream       = "realtime"
)

// -----------------------------------------------------------------------------

// CalculateMaxDataPoints returns how many samples cover window at the given
// poll interval, at least 1.
func CalculateMaxDataPoints(window, interval time.Duration) int {
	if interval <= 0 || window <= 0 {
		return 1
	}
	return int(math.Max(1, math.Ceil(float64(window)/float64(interval))))
}
