package sim

// MissModel stands in for the hardware counter facility: it reports how many
// cache misses executing t on rank cost.
type MissModel interface {
	Misses(t *Task, rank int) int64
}

// AffinityModel charges a per-type base cost, a penalty whenever the task runs
// away from its home rank, and a small deterministic jitter. It never reports
// zero, which the perceptron treats as "no sample".
type AffinityModel struct {
	Base    int64
	Penalty int64
	Jitter  int64
}

// DefaultMissModel returns the AffinityModel used when none is configured.
func DefaultMissModel() AffinityModel {
	return AffinityModel{Base: 64, Penalty: 512, Jitter: 32}
}

func (m AffinityModel) Misses(t *Task, rank int) int64 {
	misses := m.Base * int64(1+t.Type%4)
	if rank != t.Home {
		misses += m.Penalty
	}
	if m.Jitter > 0 {
		misses += int64(mix(uint64(t.ID), uint64(rank)) % uint64(m.Jitter))
	}
	return max(misses, 1)
}

// MissFunc adapts a plain function to MissModel.
type MissFunc func(t *Task, rank int) int64

func (f MissFunc) Misses(t *Task, rank int) int64 { return f(t, rank) }

func mix(a, b uint64) uint64 {
	x := a*0xBF58476D1CE4E5B9 ^ b*0x94D049BB133111EB
	x ^= x >> 31
	x *= 0x9E3779B97F4A7C15
	x ^= x >> 29
	return x
}
