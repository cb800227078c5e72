package deque

const (
	// DefaultCapacity is the number of slots a deque gets when no capacity is configured.
	DefaultCapacity = 256
	// DefaultStealChunk is the most tasks a single Steal call removes by default.
	DefaultStealChunk = 4
)

// Option is a functional option for configuring a Deque.
type Option func(*config)

type config struct {
	capacity   int
	stealChunk int
}

// WithCapacity sets the fixed number of slots. The deque never grows past it.
// Non-positive values are ignored.
func WithCapacity(capacity int) Option {
	return func(cfg *config) {
		if capacity > 0 {
			cfg.capacity = capacity
		}
	}
}

// WithStealChunk sets how many tasks Steal removes when called with a
// non-positive count. Non-positive values are ignored.
func WithStealChunk(chunk int) Option {
	return func(cfg *config) {
		if chunk > 0 {
			cfg.stealChunk = chunk
		}
	}
}
