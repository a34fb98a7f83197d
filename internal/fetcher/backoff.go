package fetcher

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy computes jittered exponential backoff delays.
type RetryPolicy struct {
	base float64
	unit time.Duration
	rng  *rand.Rand
}

// NewRetryPolicy builds a policy with the given exponent base. The unit
// controls the time scale of one backoff step and defaults to one second.
func NewRetryPolicy(base float64, unit time.Duration, rng *rand.Rand) *RetryPolicy {
	if unit <= 0 {
		unit = time.Second
	}
	return &RetryPolicy{base: base, unit: unit, rng: rng}
}

// Backoff returns the wait before the attempt following attempt (1-based):
// base^(attempt-1) plus a uniform jitter in [0, 1), scaled by the unit.
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	steps := math.Pow(p.base, float64(attempt-1)) + p.rng.Float64()
	return time.Duration(steps * float64(p.unit))
}
