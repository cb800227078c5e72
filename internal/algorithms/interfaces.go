package algorithms

import "time"

// Yield is returned by NextDelay when the idle worker should hand its P to another
// goroutine instead of sleeping.
const Yield time.Duration = -1

// IdleStrategy decides how long a worker waits after a round in which its own deque,
// the overflow queue and every victim it tried all came up empty.
type IdleStrategy interface {
	// NextDelay returns the pause for the given number of consecutive empty rounds
	// (1 for the first miss). Zero means spin again immediately and Yield means
	// call runtime.Gosched.
	NextDelay(misses int) time.Duration

	// Reset forgets any history; workers call it after they find work.
	Reset()
}
