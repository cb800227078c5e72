package percept

import (
	"errors"
	"sync"
	"testing"
)

type testTask struct {
	features []int
	typ      int
}

func (t *testTask) Features() []int { return t.features }
func (t *testTask) TaskType() int   { return t.typ }

func newTestPerceptron(t *testing.T, opts ...Option) *Perceptron {
	t.Helper()
	p, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		opts      []Option
		wantSize  int
		wantError bool
	}{
		{name: "defaults", wantSize: 1 << 15},
		{name: "small table", opts: []Option{WithTaskBits(2), WithFutureBits(1), WithRankBits(1)}, wantSize: 1 << 4},
		{name: "negative bits", opts: []Option{WithRankBits(-1)}, wantError: true},
		{name: "zero bits", opts: []Option{WithTaskBits(0), WithFutureBits(0), WithRankBits(0)}, wantError: true},
		{name: "too wide", opts: []Option{WithTaskBits(10), WithFutureBits(10), WithRankBits(10)}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.opts...)
			if tt.wantError {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.TableSize() != tt.wantSize {
				t.Errorf("TableSize() = %d, want %d", p.TableSize(), tt.wantSize)
			}
			for i := range p.TableSize() {
				if p.Weight(i) != 0 {
					t.Fatalf("weight %d = %d, want 0", i, p.Weight(i))
				}
			}
		})
	}
}

func TestPerceptron_Index(t *testing.T) {
	p := newTestPerceptron(t, WithTaskBits(2), WithFutureBits(2), WithRankBits(2))

	tests := []struct {
		name       string
		code, rank int
		want       int
	}{
		{name: "rank zero", code: 9, rank: 0, want: 9},
		{name: "xor rank", code: 8, rank: 3, want: 11},
		{name: "rank masked", code: 8, rank: 7, want: 11},
		{name: "code folded", code: 64 + 5, rank: 0, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Index(tt.code, tt.rank); got != tt.want {
				t.Errorf("Index(%d, %d) = %d, want %d", tt.code, tt.rank, got, tt.want)
			}
		})
	}
}

func TestPerceptron_Check(t *testing.T) {
	p := newTestPerceptron(t)
	task := &testTask{features: []int{1, 2, 3}}

	if got := p.Check(task, 0); got != 0 {
		t.Errorf("fresh perceptron Check = %d, want 0", got)
	}

	p.SetWeight(p.Index(1, 0), 4)
	p.SetWeight(p.Index(2, 0), -3)
	p.SetWeight(p.Index(3, 0), 10)
	if got := p.Check(task, 0); got != 11 {
		t.Errorf("Check = %d, want 11", got)
	}

	// A different rank reads different slots.
	if got := p.Check(task, 4); got != 0 {
		t.Errorf("Check for rank 4 = %d, want 0", got)
	}

	empty := &testTask{}
	if got := p.Check(empty, 0); got != 0 {
		t.Errorf("Check with no features = %d, want 0", got)
	}
}

func TestPerceptron_CheckIgnoresExtraFeatures(t *testing.T) {
	p := newTestPerceptron(t)
	codes := make([]int, MaxFeatures+2)
	for i := range codes {
		codes[i] = i + 1
		p.SetWeight(p.Index(i+1, 0), 1)
	}
	if got := p.Check(&testTask{features: codes}, 0); got != MaxFeatures {
		t.Errorf("Check = %d, want %d", got, MaxFeatures)
	}
}

func TestPerceptron_SetWeightClamps(t *testing.T) {
	p := newTestPerceptron(t)
	p.SetWeight(3, 100)
	if got := p.Weight(3); got != MaxWeight {
		t.Errorf("Weight = %d, want %d", got, MaxWeight)
	}
	p.SetWeight(3, -100)
	if got := p.Weight(3); got != MinWeight {
		t.Errorf("Weight = %d, want %d", got, MinWeight)
	}
}

func TestPerceptron_UpdateBootstrap(t *testing.T) {
	p := newTestPerceptron(t)
	task := &testTask{features: []int{1, 2}, typ: 3}

	p.Update(task, 0, 120)

	if got := p.Average(3); got != 120 {
		t.Errorf("Average = %d, want 120", got)
	}
	for _, code := range task.features {
		if w := p.Weight(p.Index(code, 0)); w != 0 {
			t.Errorf("bootstrap touched weight for code %d: %d", code, w)
		}
	}
	if s := p.Stats(); s.Updates != 1 || s.Bootstraps != 1 {
		t.Errorf("Stats = %+v, want 1 update and 1 bootstrap", s)
	}
}

func TestPerceptron_UpdateMovingAverage(t *testing.T) {
	p := newTestPerceptron(t)
	task := &testTask{features: []int{1}, typ: 2}

	samples := []struct {
		misses int64
		want   int64
	}{
		{misses: 100, want: 100},
		{misses: 200, want: 150},
		{misses: 50, want: 100},
		{misses: 101, want: 100},
	}

	for i, s := range samples {
		p.Update(task, 0, s.misses)
		if got := p.Average(2); got != s.want {
			t.Errorf("sample %d: Average = %d, want %d", i, got, s.want)
		}
	}
}

func TestPerceptron_UpdateAdjustsAllButLastFeature(t *testing.T) {
	p := newTestPerceptron(t)
	task := &testTask{features: []int{10, 20, 30}, typ: 1}
	rank := 2

	p.Update(task, rank, 100) // bootstrap
	p.Update(task, rank, 50)  // better than 100

	if w := p.Weight(p.Index(10, rank)); w != 1 {
		t.Errorf("first feature weight = %d, want 1", w)
	}
	if w := p.Weight(p.Index(20, rank)); w != 1 {
		t.Errorf("second feature weight = %d, want 1", w)
	}
	if w := p.Weight(p.Index(30, rank)); w != 0 {
		t.Errorf("last feature weight = %d, want 0", w)
	}

	p.Update(task, rank, 500) // worse than 75
	if w := p.Weight(p.Index(10, rank)); w != 0 {
		t.Errorf("first feature weight after worse sample = %d, want 0", w)
	}

	// Equal to the running average: nothing moves.
	avg := p.Average(1)
	before := p.Weight(p.Index(10, rank))
	p.Update(task, rank, avg)
	if w := p.Weight(p.Index(10, rank)); w != before {
		t.Errorf("equal sample changed weight from %d to %d", before, w)
	}
}

func TestPerceptron_UpdateSingleFeatureNeverLearns(t *testing.T) {
	p := newTestPerceptron(t)
	task := &testTask{features: []int{7}, typ: 1}
	p.Update(task, 0, 100)
	p.Update(task, 0, 1)
	if w := p.Weight(p.Index(7, 0)); w != 0 {
		t.Errorf("single feature weight = %d, want 0", w)
	}
}

func TestPerceptron_WeightClamping(t *testing.T) {
	t.Run("worse never below min", func(t *testing.T) {
		p := newTestPerceptron(t)
		task := &testTask{features: []int{1, 2}, typ: 4}
		misses := int64(10)
		p.Update(task, 0, misses)
		for range 100 {
			misses *= 2
			p.Update(task, 0, misses)
			if w := p.Weight(p.Index(1, 0)); w < MinWeight {
				t.Fatalf("weight %d below %d", w, MinWeight)
			}
			if misses > 1<<40 {
				misses = p.Average(4) + 1<<20
			}
		}
		if w := p.Weight(p.Index(1, 0)); w != MinWeight {
			t.Errorf("weight = %d, want %d", w, MinWeight)
		}
	})

	t.Run("better never above max", func(t *testing.T) {
		p := newTestPerceptron(t)
		task := &testTask{features: []int{1, 2}, typ: 5}
		p.Update(task, 0, 1<<30)
		for range 100 {
			p.Update(task, 0, 1)
			if w := p.Weight(p.Index(1, 0)); w > MaxWeight {
				t.Fatalf("weight %d above %d", w, MaxWeight)
			}
		}
		if w := p.Weight(p.Index(1, 0)); w != MaxWeight {
			t.Errorf("weight = %d, want %d", w, MaxWeight)
		}
	})
}

func TestPerceptron_TaskTypeMasked(t *testing.T) {
	p := newTestPerceptron(t, WithTaskBits(2))
	p.Update(&testTask{typ: 1 + 4}, 0, 42)
	if got := p.Average(1); got != 42 {
		t.Errorf("Average(1) = %d, want 42", got)
	}
}

func TestPerceptron_Reset(t *testing.T) {
	p := newTestPerceptron(t)
	task := &testTask{features: []int{1, 2}, typ: 1}
	p.Update(task, 0, 10)
	p.Update(task, 0, 5)
	p.Reset()

	if p.Average(1) != 0 || p.Weight(p.Index(1, 0)) != 0 {
		t.Error("Reset left state behind")
	}
	if s := p.Stats(); s != (Stats{}) {
		t.Errorf("Stats after Reset = %+v", s)
	}
}

// TestPerceptron_ConcurrentCheckAndUpdate runs lock-free readers against serialized
// writers. Readers may see any mix of old and new weights, but every weight must stay
// within bounds and the update count must be exact.
func TestPerceptron_ConcurrentCheckAndUpdate(t *testing.T) {
	p := newTestPerceptron(t)
	const (
		writers = 4
		readers = 4
		rounds  = 2000
	)

	task := &testTask{features: []int{1, 2, 3, 4}, typ: 1}
	var wg sync.WaitGroup

	wg.Add(writers + readers)
	for w := range writers {
		go func() {
			defer wg.Done()
			for i := range rounds {
				p.Update(task, w, int64(1+(i*7+w)%50))
			}
		}()
	}
	for r := range readers {
		go func() {
			defer wg.Done()
			limit := len(task.features) * MaxWeight
			for range rounds {
				s := p.Check(task, r)
				if s > limit || s < len(task.features)*MinWeight {
					t.Errorf("score %d out of bounds", s)
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := p.Stats().Updates; got != writers*rounds {
		t.Errorf("Updates = %d, want %d", got, writers*rounds)
	}
}

func BenchmarkPerceptron_Check(b *testing.B) {
	p, _ := New()
	task := &testTask{features: []int{1, 2, 3, 4, 5}}
	for b.Loop() {
		_ = p.Check(task, 3)
	}
}

func BenchmarkPerceptron_Update(b *testing.B) {
	p, _ := New()
	task := &testTask{features: []int{1, 2, 3, 4, 5}, typ: 2}
	var i int64
	for b.Loop() {
		i++
		p.Update(task, 1, 100+i%17)
	}
}
