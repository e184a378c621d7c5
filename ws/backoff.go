package ws

import (
	"math"
	"time"
)

// BackoffCalculator returns how long to wait before the given dial attempt (1-based).
type BackoffCalculator func(attempts int) time.Duration

func ExponentialBackoff(attempts int) float64 {
	return (math.Pow(2.0, float64(attempts)) - 1) / 2
}

func ExponentialBackoffSeconds(attempts int) time.Duration {
	return time.Duration(ExponentialBackoff(attempts) * float64(time.Second))
}

// ConstantBackoff waits d between every attempt.
func ConstantBackoff(d time.Duration) BackoffCalculator {
	return func(int) time.Duration { return d }
}
