package worker

import (
	"math/rand"
	"time"
)

const (
	backoffBase = 2 * time.Second
	backoffCap  = 5 * time.Minute
)

// ExponentialBackoff returns the delay before the next retry of a job that
// has already failed `attempts` times, with a small jitter so retries from
// concurrent workers spread out.
func ExponentialBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 30 {
		attempts = 30
	}

	d := backoffBase << uint(attempts)

	if d <= 0 || d > backoffCap {
		d = backoffCap
	}

	jitter := time.Duration(rand.Int63n(int64(250 * time.Millisecond)))

	return d + jitter
}
