package sim

import (
	"runtime"
	"time"

	"github.com/utkarsh5026/perceptq/deque"
	"github.com/utkarsh5026/perceptq/internal/algorithms"
	"github.com/utkarsh5026/perceptq/percept"
	"golang.org/x/time/rate"
)

// Option is a functional option for configuring a Pool.
type Option func(*config)

type config struct {
	workers    int
	capacity   int
	stealChunk int
	pin        bool
	scoring    bool
	model      MissModel
	limiter    *rate.Limiter
	perceptron *percept.Perceptron

	idleType  algorithms.IdleType
	idleBase  time.Duration
	idleLimit time.Duration
}

func defaultConfig() config {
	return config{
		workers:    runtime.GOMAXPROCS(0),
		capacity:   deque.DefaultCapacity,
		stealChunk: deque.DefaultStealChunk,
		scoring:    true,
		model:      DefaultMissModel(),
		idleType:   algorithms.IdleTiered,
		idleBase:   50 * time.Microsecond,
		idleLimit:  5 * time.Millisecond,
	}
}

// WithWorkers sets the number of simulated workers, one deque each.
// If not specified, defaults to runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.workers = n
		}
	}
}

// WithCapacity sets every worker deque's fixed capacity.
func WithCapacity(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.capacity = n
		}
	}
}

// WithStealChunk sets how many tasks a thief takes from a victim at once.
func WithStealChunk(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.stealChunk = n
		}
	}
}

// WithSpawnRate limits how fast running tasks may spawn children.
// Non-positive values disable the limit.
//
// Example:
//
//	WithSpawnRate(10000, 64) // 10k children/sec with bursts of 64
func WithSpawnRate(perSecond float64, burst int) Option {
	return func(cfg *config) {
		if perSecond > 0 && burst > 0 {
			cfg.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		} else {
			cfg.limiter = nil
		}
	}
}

// WithPinning locks each worker to an OS thread and a core.
func WithPinning(enabled bool) Option {
	return func(cfg *config) {
		cfg.pin = enabled
	}
}

// WithScoring toggles perceptron-guided pops. When disabled workers pop LIFO,
// but the perceptron still learns from every execution.
func WithScoring(enabled bool) Option {
	return func(cfg *config) {
		cfg.scoring = enabled
	}
}

// WithMissModel replaces the cache-miss source.
func WithMissModel(m MissModel) Option {
	return func(cfg *config) {
		if m != nil {
			cfg.model = m
		}
	}
}

// WithPerceptron shares an existing perceptron instead of creating a fresh one,
// so learning carries over between pools or runs.
func WithPerceptron(p *percept.Perceptron) Option {
	return func(cfg *config) {
		if p != nil {
			cfg.perceptron = p
		}
	}
}

// WithIdle selects how idle workers wait between empty steal rounds.
func WithIdle(idleType algorithms.IdleType, base, limit time.Duration) Option {
	return func(cfg *config) {
		cfg.idleType = idleType
		if base > 0 {
			cfg.idleBase = base
		}
		if limit > 0 {
			cfg.idleLimit = limit
		}
	}
}
