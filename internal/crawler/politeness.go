package crawler

import (
	"context"
	"math/rand"
	"time"
)

// Pauser enforces the politeness delay between consecutive outbound
// requests: a uniformly random wait inside [min, max].
type Pauser struct {
	min time.Duration
	max time.Duration
	rng *rand.Rand
}

// NewPauser builds a Pauser over the given delay window.
func NewPauser(min, max time.Duration, rng *rand.Rand) *Pauser {
	if max < min {
		max = min
	}
	return &Pauser{min: min, max: max, rng: rng}
}

// Pause blocks for a random delay in the window, or until the context
// finishes, whichever comes first.
func (p *Pauser) Pause(ctx context.Context) {
	delay := p.min
	if span := p.max - p.min; span > 0 {
		delay += time.Duration(p.rng.Int63n(int64(span)))
	}
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
