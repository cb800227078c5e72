// Package percept implements the online-learned scorer a worker consults when it
// picks its next task.
//
// A Perceptron keeps a table of small signed weights indexed by a task feature code
// XORed with the executing worker's rank, plus an exponential moving average of
// observed cache misses for every task type. Check sums the weights of a task's
// features and is lock-free; Update compares a fresh cache-miss count against the
// running average and nudges the weights of the contributing features, serialized by
// a spinlock.
//
// Check never takes the lock, so it can observe an Update halfway through. Scheduling
// depends only on the weights converging over many calls, not on a consistent
// snapshot.
package percept

import (
	"sync/atomic"

	"github.com/utkarsh5026/perceptq/internal/spin"
)

const (
	// MinWeight is the lowest value a weight can reach.
	MinWeight = -16
	// MaxWeight is the highest value a weight can reach.
	MaxWeight = 15
	// MaxFeatures is the most feature codes a single task contributes.
	MaxFeatures = 8
)

// Task is the view of a unit of work the perceptron needs.
type Task interface {
	// Features returns the task's feature codes. Only the first MaxFeatures are used.
	Features() []int
	// TaskType returns the bucket used for cache-miss statistics.
	TaskType() int
}

// Stats counts what Update has done since the last Reset.
type Stats struct {
	Updates    uint64 // total Update calls
	Bootstraps uint64 // calls that only seeded an average
	Raised     uint64 // weight increments applied
	Lowered    uint64 // weight decrements applied
}

// Perceptron is the shared, process-wide scorer. Create one with New and hand the
// same instance to every worker.
type Perceptron struct {
	weights  []atomic.Int32
	averages []atomic.Int64

	taskMask  int
	rankMask  int
	indexMask int

	owned spin.Lock

	updates, bootstraps, raised, lowered atomic.Uint64
}

// New creates a Perceptron with all weights and averages zeroed.
func New(opts ...Option) (*Perceptron, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Perceptron{
		weights:   make([]atomic.Int32, 1<<cfg.indexBits()),
		averages:  make([]atomic.Int64, 1<<cfg.taskBits),
		taskMask:  (1 << cfg.taskBits) - 1,
		rankMask:  (1 << cfg.rankBits) - 1,
		indexMask: (1 << cfg.indexBits()) - 1,
	}, nil
}

// Index returns the weight-table slot a feature code maps to for the given rank.
// Codes wider than the table are folded into it by masking.
func (p *Perceptron) Index(code, rank int) int {
	return (code ^ (rank & p.rankMask)) & p.indexMask
}

// Check scores t for the worker identified by rank. Higher is better. The value is
// only meaningful relative to other scores computed in the same pop.
func (p *Perceptron) Check(t Task, rank int) int {
	score := 0
	for _, code := range features(t) {
		score += int(p.weights[p.Index(code, rank)].Load())
	}
	return score
}

// Update folds the cache-miss count observed while rank executed t into the running
// average for t's type and, unless this is the first sample for that type, adjusts
// the weights of every feature except the last one.
func (p *Perceptron) Update(t Task, rank int, misses int64) {
	p.owned.Lock()
	defer p.owned.Unlock()

	p.updates.Add(1)

	bucket := &p.averages[t.TaskType()&p.taskMask]
	prev := bucket.Load()
	if prev == 0 {
		bucket.Store(misses)
		p.bootstraps.Add(1)
		return
	}
	bucket.Store(int64(0.5 * float64(prev+misses)))

	var delta int32
	switch {
	case misses > prev:
		delta = -1
	case misses < prev:
		delta = 1
	default:
		return
	}

	codes := features(t)
	for i := 0; i < len(codes)-1; i++ {
		w := &p.weights[p.Index(codes[i], rank)]
		cur := w.Load()
		next := clampWeight(cur + delta)
		w.Store(next)

		switch {
		case next > cur:
			p.raised.Add(1)
		case next < cur:
			p.lowered.Add(1)
		}
	}
}

// Weight returns the weight stored at idx.
func (p *Perceptron) Weight(idx int) int {
	return int(p.weights[idx&p.indexMask].Load())
}

// SetWeight stores w, clamped to [MinWeight, MaxWeight], at idx.
func (p *Perceptron) SetWeight(idx, w int) {
	p.owned.Lock()
	defer p.owned.Unlock()
	p.weights[idx&p.indexMask].Store(int32(max(min(w, MaxWeight), MinWeight)))
}

// Average returns the current cache-miss average for a task type; 0 means no sample
// has been recorded yet.
func (p *Perceptron) Average(taskType int) int64 {
	return p.averages[taskType&p.taskMask].Load()
}

// TableSize returns the number of weights.
func (p *Perceptron) TableSize() int {
	return len(p.weights)
}

// Stats returns a copy of the update counters.
func (p *Perceptron) Stats() Stats {
	return Stats{
		Updates:    p.updates.Load(),
		Bootstraps: p.bootstraps.Load(),
		Raised:     p.raised.Load(),
		Lowered:    p.lowered.Load(),
	}
}

// Reset zeroes all weights, averages and counters.
func (p *Perceptron) Reset() {
	p.owned.Lock()
	defer p.owned.Unlock()

	for i := range p.weights {
		p.weights[i].Store(0)
	}
	for i := range p.averages {
		p.averages[i].Store(0)
	}
	p.updates.Store(0)
	p.bootstraps.Store(0)
	p.raised.Store(0)
	p.lowered.Store(0)
}

func features(t Task) []int {
	codes := t.Features()
	if len(codes) > MaxFeatures {
		codes = codes[:MaxFeatures]
	}
	return codes
}

func clampWeight(w int32) int32 {
	return max(min(w, MaxWeight), MinWeight)
}
