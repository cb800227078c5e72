package algorithms

import "time"

// IdleType selects an IdleStrategy implementation.
type IdleType int

const (
	// IdleTiered spins, then yields, then sleeps with a capped exponential delay (default).
	IdleTiered IdleType = iota
	// IdleExponential sleeps from the first miss, doubling each round.
	IdleExponential
	// IdleJittered is IdleExponential with random spread so idle workers desynchronize.
	IdleJittered
	// IdleDecorrelated picks each sleep relative to the previous one.
	IdleDecorrelated
)

// String returns the strategy name used on the command line.
func (t IdleType) String() string {
	switch t {
	case IdleExponential:
		return "exponential"
	case IdleJittered:
		return "jittered"
	case IdleDecorrelated:
		return "decorrelated"
	default:
		return "tiered"
	}
}

// ParseIdleType maps a command-line name back to its IdleType. Unknown names
// report false.
func ParseIdleType(name string) (IdleType, bool) {
	for _, t := range []IdleType{IdleTiered, IdleExponential, IdleJittered, IdleDecorrelated} {
		if t.String() == name {
			return t, true
		}
	}
	return IdleTiered, false
}

// NewIdleStrategy builds the strategy for idleType. baseDelay is the first sleep and
// maxDelay caps every sleep.
func NewIdleStrategy(idleType IdleType, baseDelay, maxDelay time.Duration) IdleStrategy {
	switch idleType {
	case IdleExponential:
		return newExponentialIdle(baseDelay, maxDelay)
	case IdleJittered:
		return newJitteredIdle(baseDelay, maxDelay, defaultJitter)
	case IdleDecorrelated:
		return newDecorrelatedIdle(baseDelay, maxDelay)
	default:
		return newTieredIdle(baseDelay, maxDelay)
	}
}
