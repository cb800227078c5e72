// Package spin provides the binary ownership token shared by the deque and the
// perceptron: an atomic flag acquired with a compare-and-swap busy loop.
package spin

import "sync/atomic"

const (
	unlocked int32 = 0
	locked   int32 = 1
)

// Lock is a spinlock built on a single atomic flag.
//
// Lock spins until the flag transitions 0 -> 1. There is no bound on the wait,
// no backoff and no fairness between waiters, so critical sections guarded by it
// must stay short. The zero value is an unlocked Lock. A Lock must not be copied
// after first use.
type Lock struct {
	owned atomic.Int32
}

// Lock acquires ownership, busy-retrying until it succeeds.
func (l *Lock) Lock() {
	for !l.owned.CompareAndSwap(unlocked, locked) {
	}
}

// TryLock makes a single acquisition attempt and reports whether it succeeded.
func (l *Lock) TryLock() bool {
	return l.owned.CompareAndSwap(unlocked, locked)
}

// Unlock releases ownership with a plain store.
// Unlocking a Lock that is not held panics, like sync.Mutex.
func (l *Lock) Unlock() {
	if l.owned.Load() != locked {
		panic("spin: unlock of unlocked lock")
	}
	l.owned.Store(unlocked)
}

// Held reports whether the lock is currently owned by someone.
// The answer may be stale by the time the caller looks at it.
func (l *Lock) Held() bool {
	return l.owned.Load() == locked
}
