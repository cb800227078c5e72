package sim

import (
	"context"
	"math/rand"
	"runtime"
)

// Task is one unit of simulated work. Running it may spawn Children, which the
// executing worker pushes onto its own deque.
type Task struct {
	ID    int
	Type  int
	Home  int // rank whose cache is warm for this task
	Depth int
	Work  int // busy-loop iterations

	Codes    []int
	Children []*Task

	// Run replaces the default busy loop when set.
	Run func(ctx context.Context) error

	result uint64
}

// Features implements percept.Task.
func (t *Task) Features() []int { return t.Codes }

// TaskType implements percept.Task.
func (t *Task) TaskType() int { return t.Type }

// Workload describes a generated task forest.
type Workload struct {
	Tasks   int   // total tasks including descendants
	Roots   int   // tasks handed to the pool up front
	Fanout  int   // children per parent
	Types   int   // distinct task types
	Workers int   // ranks Home is drawn from
	Work    int   // busy-loop iterations per task
	Seed    int64 // generator seed
}

// DefaultWorkload returns a forest sized for a quick run on this machine.
func DefaultWorkload() Workload {
	return Workload{
		Tasks:   10000,
		Roots:   1,
		Fanout:  4,
		Types:   8,
		Workers: runtime.GOMAXPROCS(0),
		Work:    2000,
		Seed:    1,
	}
}

// Build generates the forest and returns its roots. Task IDs are dense in
// [0, Tasks). Parents always have smaller IDs than their children.
func (w Workload) Build() []*Task {
	w = w.normalized()
	rng := rand.New(rand.NewSource(w.Seed)) // #nosec G404 -- deterministic workload, not security sensitive

	all := make([]*Task, w.Tasks)
	for i := range all {
		t := &Task{
			ID:   i,
			Type: rng.Intn(w.Types),
			Home: rng.Intn(w.Workers),
			Work: w.Work,
		}
		if i >= w.Roots {
			parent := all[(i-w.Roots)/w.Fanout]
			t.Depth = parent.Depth + 1
			parent.Children = append(parent.Children, t)
		}
		t.Codes = featureCodes(t)
		all[i] = t
	}
	return all[:w.Roots]
}

func (w Workload) normalized() Workload {
	d := DefaultWorkload()
	if w.Tasks <= 0 {
		w.Tasks = d.Tasks
	}
	if w.Roots <= 0 {
		w.Roots = d.Roots
	}
	w.Roots = min(w.Roots, w.Tasks)
	if w.Fanout <= 0 {
		w.Fanout = d.Fanout
	}
	if w.Types <= 0 {
		w.Types = d.Types
	}
	if w.Workers <= 0 {
		w.Workers = d.Workers
	}
	if w.Work < 0 {
		w.Work = 0
	}
	return w
}

// featureCodes derives the perceptron inputs for t. The low five bits of the first
// code hold the home rank, so XORing with the executing rank gives each
// (type, home, rank) combination its own weight. The depth code comes last and is
// therefore scored but never trained.
func featureCodes(t *Task) []int {
	return []int{
		(t.Type&31)<<5 | t.Home&31,
		1<<10 | (t.Type&31)<<5,
		2<<10 | min(t.Depth, 31),
	}
}

// Walk calls fn for every task reachable from roots, parents before children.
// Nil tasks are skipped.
func Walk(roots []*Task, fn func(*Task)) {
	stack := make([]*Task, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if t == nil {
			continue
		}
		fn(t)
		for i := len(t.Children) - 1; i >= 0; i-- {
			stack = append(stack, t.Children[i])
		}
	}
}

// burn is the default task body: a xorshift loop whose result is kept on the task
// so the compiler cannot drop it.
func burn(t *Task) {
	x := uint64(t.ID)*0x9E3779B97F4A7C15 + 1
	for range t.Work {
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
	}
	t.result = x
}
