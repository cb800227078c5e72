// Package deque implements the per-worker task container of a work-stealing runtime.
//
// A Deque is a fixed-capacity double-ended queue. Its owning worker pushes new tasks
// at the tail and pops its next task from the live window, guided by a Scorer; any
// other worker may steal from the head. Every mutation happens while holding a single
// spinlock ownership token, so thieves are serialized against the owner as well as
// against each other.
//
// The deque stores references only. It never owns the tasks it holds: the contract is
// that each logical removal hands a reference to at most one caller.
package deque

import (
	"errors"
	"sync/atomic"

	"github.com/utkarsh5026/perceptq/internal/ring"
	"github.com/utkarsh5026/perceptq/internal/spin"
	"github.com/utkarsh5026/perceptq/percept"
	"golang.org/x/sys/cpu"
)

var (
	// ErrFull is returned by Push when the deque already holds Cap() tasks.
	ErrFull = errors.New("deque: full")
	// ErrDestroyed is returned by Push after Destroy.
	ErrDestroyed = errors.New("deque: destroyed")
)

// Scorer ranks candidate tasks during Pop. Higher scores win.
// *percept.Perceptron satisfies Scorer.
type Scorer interface {
	Check(t percept.Task, rank int) int
}

// Deque is a fixed-capacity work-stealing deque of task references.
//
// Concurrency model:
//   - Push and Pop must only be called by the owning worker
//   - Steal may be called by any goroutine
//   - Size may be called by anyone and is advisory
//
// head and tail are logical counters that only move forward (Pop's speculative
// decrement aside) and always satisfy 0 <= tail-head <= Cap() outside the
// critical section.
type Deque[T percept.Task] struct {
	owned spin.Lock
	_     cpu.CacheLinePad

	head atomic.Int64
	_    cpu.CacheLinePad

	tail atomic.Int64
	_    cpu.CacheLinePad

	ring       *ring.Ring[T]
	capacity   int64
	stealChunk int
}

// New creates an empty deque.
func New[T percept.Task](opts ...Option) *Deque[T] {
	cfg := config{
		capacity:   DefaultCapacity,
		stealChunk: DefaultStealChunk,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Deque[T]{
		ring:       ring.New[T](cfg.capacity),
		capacity:   int64(cfg.capacity),
		stealChunk: cfg.stealChunk,
	}
}

// Push adds t at the tail. It returns ErrFull, leaving the deque untouched, when
// there is no free slot; the caller must route t elsewhere.
//
// The slot is written before tail is published, so any thief that observes the new
// tail also observes the task.
func (d *Deque[T]) Push(t T) error {
	d.owned.Lock()
	defer d.owned.Unlock()

	if d.ring == nil {
		return ErrDestroyed
	}

	tail := d.tail.Load()
	if tail-d.head.Load() == d.capacity {
		debugLog("push rejected: deque full (cap=%d)", d.capacity)
		return ErrFull
	}

	d.ring.Set(tail, t)
	d.tail.Store(tail + 1)
	return nil
}

// Pop removes and returns the best task in the live window for the worker
// identified by rank. It reports false when the deque is empty.
//
// Every resident task is scored with s, scanning from the tail toward the head.
// A candidate replaces the current best only on a strictly greater score, so
// ties go to the task nearest the tail and a flat score degenerates to LIFO.
// When the winner is not at the tail the slots above it shift down by one to
// keep the window contiguous. A nil s always takes the tail.
//
// Pop must only be called by the owner.
func (d *Deque[T]) Pop(s Scorer, rank int) (T, bool) {
	var zero T

	d.owned.Lock()
	defer d.owned.Unlock()

	if d.ring == nil {
		return zero, false
	}

	// Claim the tail slot before looking at head.
	tail := d.tail.Load() - 1
	d.tail.Store(tail)
	head := d.head.Load()

	if tail-head < 0 {
		// A steal took the last task; snap tail back onto head.
		d.tail.Store(head)
		return zero, false
	}

	best := tail
	if s != nil {
		best = d.bestIndex(s, rank, head, tail)
	}

	t := d.ring.At(best)
	if best != tail {
		d.ring.ShiftDown(best, tail)
	}
	d.ring.Clear(tail)
	return t, true
}

// bestIndex scans [head, tail] downward and returns the logical index of the
// highest scoring task, preferring the one nearest tail on ties.
func (d *Deque[T]) bestIndex(s Scorer, rank int, head, tail int64) int64 {
	best := tail
	bestScore := s.Check(d.ring.At(tail), rank)
	for i := tail - 1; i >= head; i-- {
		if score := s.Check(d.ring.At(i), rank); score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// Steal removes up to count tasks from the head, oldest first. The count is capped
// at the configured steal chunk, and a non-positive count takes a full chunk. It
// returns nil if nothing could be taken.
//
// Steal holds the same token as Push and Pop for its whole run.
func (d *Deque[T]) Steal(count int) []T {
	if count <= 0 {
		count = d.stealChunk
	}

	buf := make([]T, min(count, d.stealChunk))
	n := d.StealInto(buf)
	if n == 0 {
		return nil
	}
	return buf[:n]
}

// StealInto is like Steal but fills dst instead of allocating. It returns the
// number of tasks written, at most min(len(dst), StealChunk()).
func (d *Deque[T]) StealInto(dst []T) int {
	dst = dst[:min(len(dst), d.stealChunk)]
	if len(dst) == 0 {
		return 0
	}

	d.owned.Lock()
	defer d.owned.Unlock()

	if d.ring == nil {
		return 0
	}

	n := 0
	for n < len(dst) {
		head := d.head.Load()
		tail := d.tail.Load()
		if tail-head <= 0 {
			break
		}

		t := d.ring.At(head)
		if !d.head.CompareAndSwap(head, head+1) {
			continue
		}
		d.ring.Clear(head)
		dst[n] = t
		n++
	}
	return n
}

// Size returns the number of tasks currently held. It does not take the token,
// so the value may already be stale when it is returned.
func (d *Deque[T]) Size() int {
	return int(max(0, d.tail.Load()-d.head.Load()))
}

// Cap returns the fixed capacity.
func (d *Deque[T]) Cap() int {
	return int(d.capacity)
}

// StealChunk returns the most tasks a single steal may remove.
func (d *Deque[T]) StealChunk() int {
	return d.stealChunk
}

// Destroy drops the backing storage. The caller must make sure no Push, Pop or
// Steal is in flight. Afterwards Push returns ErrDestroyed and Pop and Steal
// report empty.
func (d *Deque[T]) Destroy() {
	d.owned.Lock()
	defer d.owned.Unlock()

	if d.ring != nil {
		d.ring.Reset()
		d.ring = nil
	}
	d.head.Store(0)
	d.tail.Store(0)
}
