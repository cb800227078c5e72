// Package algorithms holds the idle policies workers fall back on when there is
// nothing to pop and nothing to steal. The deque itself never waits on anything
// but its own token; bounding how long an idle worker keeps probing peers is the
// caller's job and lives here.
package algorithms

import (
	"context"
	"math/rand"
	"runtime"
	"sync"
	"time"
)

const (
	// maxShift keeps 1<<shift from overflowing a time.Duration.
	maxShift = 62

	spinRounds    = 20
	yieldRounds   = 30
	defaultJitter = 0.25
)

// Pause carries out the wait strategy s prescribes for the misses-th empty round.
// It returns ctx.Err() if the context is cancelled while sleeping.
func Pause(ctx context.Context, s IdleStrategy, misses int) error {
	d := s.NextDelay(misses)
	switch {
	case d == Yield:
		runtime.Gosched()
		return nil
	case d <= 0:
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tieredIdle keeps an idle worker hot for a few rounds in case work shows up in a
// burst, then yields, and only then starts sleeping.
//
//   - misses 1-20: spin
//   - misses 21-30: runtime.Gosched
//   - misses 31+: base * 2^(misses-31), capped at ceiling
type tieredIdle struct {
	base, ceiling time.Duration
}

func newTieredIdle(base, ceiling time.Duration) *tieredIdle {
	return &tieredIdle{base: base, ceiling: ceiling}
}

func (t *tieredIdle) NextDelay(misses int) time.Duration {
	switch {
	case misses <= spinRounds:
		return 0
	case misses <= yieldRounds:
		return Yield
	default:
		return doubling(misses-yieldRounds-1, t.base, t.ceiling)
	}
}

func (t *tieredIdle) Reset() {}

// exponentialIdle sleeps base * 2^(misses-1), capped at ceiling.
type exponentialIdle struct {
	base, ceiling time.Duration
}

func newExponentialIdle(base, ceiling time.Duration) *exponentialIdle {
	return &exponentialIdle{base: base, ceiling: ceiling}
}

func (e *exponentialIdle) NextDelay(misses int) time.Duration {
	if misses <= 0 {
		return 0
	}
	return doubling(misses-1, e.base, e.ceiling)
}

func (e *exponentialIdle) Reset() {}

// jitteredIdle spreads exponential delays by ±jitter so a pool of idle workers
// does not wake up in lockstep and stampede the same victim.
type jitteredIdle struct {
	base, ceiling time.Duration
	jitter        float64

	mu  sync.Mutex
	rng *rand.Rand
}

func newJitteredIdle(base, ceiling time.Duration, jitter float64) *jitteredIdle {
	return &jitteredIdle{
		base:    base,
		ceiling: ceiling,
		jitter:  min(max(jitter, 0), 1),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter does not need crypto rand
	}
}

func (j *jitteredIdle) NextDelay(misses int) time.Duration {
	if misses <= 0 {
		return 0
	}

	d := doubling(misses-1, j.base, j.ceiling)

	j.mu.Lock()
	factor := 1 + (j.rng.Float64()*2-1)*j.jitter
	j.mu.Unlock()

	return min(max(time.Duration(float64(d)*factor), 0), j.ceiling)
}

func (j *jitteredIdle) Reset() {}

// decorrelatedIdle draws each sleep from [base, 3*previous], capped at ceiling, so the
// schedule depends on the worker's own history rather than the miss count alone.
type decorrelatedIdle struct {
	base, ceiling time.Duration

	mu   sync.Mutex
	prev time.Duration
	rng  *rand.Rand
}

func newDecorrelatedIdle(base, ceiling time.Duration) *decorrelatedIdle {
	return &decorrelatedIdle{
		base:    base,
		ceiling: ceiling,
		prev:    base,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter does not need crypto rand
	}
}

func (d *decorrelatedIdle) NextDelay(misses int) time.Duration {
	if misses <= 0 {
		return 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if misses == 1 {
		d.prev = d.base
		return d.base
	}

	upper := min(3*d.prev, d.ceiling)
	spread := upper - d.base
	if spread <= 0 {
		d.prev = d.base
		return d.base
	}

	next := d.base + time.Duration(d.rng.Int63n(int64(spread)))
	d.prev = next
	return next
}

func (d *decorrelatedIdle) Reset() {
	d.mu.Lock()
	d.prev = d.base
	d.mu.Unlock()
}

// doubling returns base * 2^shift, clamped to [0, ceiling].
func doubling(shift int, base, ceiling time.Duration) time.Duration {
	if shift < 0 {
		return 0
	}
	if shift >= maxShift {
		return ceiling
	}

	d := base << uint(shift)
	if d > ceiling || d < 0 || d>>uint(shift) != base {
		return ceiling
	}
	return d
}
