package percept

import (
	"errors"
	"fmt"
)

const (
	// DefaultTaskBits is the number of index bits used for the task type.
	DefaultTaskBits = 5
	// DefaultFutureBits is the number of index bits used for the future/completion source.
	DefaultFutureBits = 5
	// DefaultRankBits is the number of index bits used for the worker rank.
	DefaultRankBits = 5

	// maxIndexBits caps the weight table at 16M entries.
	maxIndexBits = 24
)

// ErrInvalidConfig is returned by New when the bit widths cannot size a table.
var ErrInvalidConfig = errors.New("percept: invalid configuration")

// Option configures a Perceptron.
type Option func(*config)

type config struct {
	taskBits   int
	futureBits int
	rankBits   int
}

func defaultConfig() config {
	return config{
		taskBits:   DefaultTaskBits,
		futureBits: DefaultFutureBits,
		rankBits:   DefaultRankBits,
	}
}

// WithTaskBits sets the width of the task-type field. It also sizes the
// per-type average table (2^bits buckets).
func WithTaskBits(bits int) Option {
	return func(cfg *config) {
		cfg.taskBits = bits
	}
}

// WithFutureBits sets the width of the future/completion-source field.
func WithFutureBits(bits int) Option {
	return func(cfg *config) {
		cfg.futureBits = bits
	}
}

// WithRankBits sets the width of the worker-rank field mixed into every index.
func WithRankBits(bits int) Option {
	return func(cfg *config) {
		cfg.rankBits = bits
	}
}

func (c config) indexBits() int {
	return c.taskBits + c.futureBits + c.rankBits
}

func (c config) validate() error {
	if c.taskBits < 0 || c.futureBits < 0 || c.rankBits < 0 {
		return fmt.Errorf("%w: negative bit width (task=%d future=%d rank=%d)",
			ErrInvalidConfig, c.taskBits, c.futureBits, c.rankBits)
	}
	if n := c.indexBits(); n == 0 || n > maxIndexBits {
		return fmt.Errorf("%w: index bits %d out of range [1, %d]", ErrInvalidConfig, n, maxIndexBits)
	}
	return nil
}
