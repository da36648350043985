package resilience

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff describes a delay schedule. With Factor 1 and no Jitter it is a
// fixed interval.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
	// Jitter is the fraction (0..1) of each delay randomized in either direction.
	Jitter float64
}

// FixedBackoff returns a schedule that always waits d.
func FixedBackoff(d time.Duration) Backoff {
	return Backoff{Initial: d, Max: d, Factor: 1}
}

// Delay returns the wait before the given attempt; attempt 1 is the first wait.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := b.Factor
	if factor < 1 {
		factor = 1
	}
	d := float64(b.Initial) * math.Pow(factor, float64(attempt-1))
	if b.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * b.Jitter
	}
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	if d <= 0 {
		return b.Initial
	}
	return time.Duration(d)
}
