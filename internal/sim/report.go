package sim

import (
	"time"

	"github.com/utkarsh5026/perceptq/percept"
)

// WorkerStats is what one worker did during a Run.
type WorkerStats struct {
	Rank       int
	Executed   int64 // tasks run by this worker
	HomeHits   int64 // tasks run on their home rank
	Stolen     int64 // tasks taken from peers
	StealOps   int64 // successful steal calls
	Overflowed int64 // pushes that went to the overflow queue
	Misses     int64 // simulated cache misses summed over executed tasks
}

// Report summarizes a Run.
type Report struct {
	Scored     bool
	Workers    []WorkerStats
	Expected   int64
	Executed   int64
	Duplicates int64
	Elapsed    time.Duration
	Percept    percept.Stats
}

// Complete reports whether every expected task ran exactly once.
func (r *Report) Complete() bool {
	return r.Executed == r.Expected && r.Duplicates == 0
}

// Totals folds the per-worker rows into one.
func (r *Report) Totals() WorkerStats {
	total := WorkerStats{Rank: -1}
	for _, w := range r.Workers {
		total.Executed += w.Executed
		total.HomeHits += w.HomeHits
		total.Stolen += w.Stolen
		total.StealOps += w.StealOps
		total.Overflowed += w.Overflowed
		total.Misses += w.Misses
	}
	return total
}

// AvgMisses returns the mean simulated cache misses per executed task.
func (r *Report) AvgMisses() float64 {
	t := r.Totals()
	if t.Executed == 0 {
		return 0
	}
	return float64(t.Misses) / float64(t.Executed)
}

// HomeRate returns the fraction of tasks that ran on their home rank.
func (r *Report) HomeRate() float64 {
	t := r.Totals()
	if t.Executed == 0 {
		return 0
	}
	return float64(t.HomeHits) / float64(t.Executed)
}

// Throughput returns executed tasks per second.
func (r *Report) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Executed) / r.Elapsed.Seconds()
}

func diffStats(before, after percept.Stats) percept.Stats {
	return percept.Stats{
		Updates:    after.Updates - before.Updates,
		Bootstraps: after.Bootstraps - before.Bootstraps,
		Raised:     after.Raised - before.Raised,
		Lowered:    after.Lowered - before.Lowered,
	}
}
