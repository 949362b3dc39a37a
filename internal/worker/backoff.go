package worker

import (
	"math"
	"math/rand"
	"time"
)

// ExponentialBackoff doubles base per failed attempt up to max, plus a
// little jitter. attempt=0 => base.
func ExponentialBackoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if delay > max || delay <= 0 {
		delay = max
	}

	// small jitter (0-250ms) so replicas don't retry in lockstep
	delay += time.Duration(rand.Intn(250)) * time.Millisecond
	return delay
}
