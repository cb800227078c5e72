// Package sim drives the deque and the perceptron the way a work-stealing runtime
// would: a fixed set of workers, each owning one deque, sharing one perceptron,
// spawning children onto their own deque, overflowing to a shared queue when full,
// and stealing from peers when idle.
package sim

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/utkarsh5026/perceptq/deque"
	"github.com/utkarsh5026/perceptq/internal/algorithms"
	"github.com/utkarsh5026/perceptq/internal/cpu"
	"github.com/utkarsh5026/perceptq/percept"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrBusy is returned by Run when another Run on the same Pool is in progress.
	ErrBusy = errors.New("sim: pool is already running")
	// ErrInvalidTaskID is returned by Run when a task ID is negative or repeated, or
	// the forest contains a nil task.
	ErrInvalidTaskID = errors.New("sim: invalid task id")
)

// Pool is a simulated worker pool. It can be reused for several Runs; the
// perceptron keeps learning across them.
type Pool struct {
	cfg        config
	perceptron *percept.Perceptron
	deques     []*deque.Deque[*Task]
	overflow   overflowQueue

	running    atomic.Bool
	pending    atomic.Int64
	victimSeed atomic.Uint64
	seen       []atomic.Int32
	duplicates atomic.Int64
}

// New creates a Pool.
func New(opts ...Option) (*Pool, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := cfg.perceptron
	if p == nil {
		var err error
		if p, err = percept.New(); err != nil {
			return nil, fmt.Errorf("sim: creating perceptron: %w", err)
		}
	}

	pool := &Pool{
		cfg:        cfg,
		perceptron: p,
		deques:     make([]*deque.Deque[*Task], cfg.workers),
	}
	for i := range pool.deques {
		pool.deques[i] = deque.New[*Task](
			deque.WithCapacity(cfg.capacity),
			deque.WithStealChunk(cfg.stealChunk),
		)
	}
	return pool, nil
}

// Perceptron returns the scorer shared by every worker.
func (p *Pool) Perceptron() *percept.Perceptron {
	return p.perceptron
}

// Workers returns the number of workers.
func (p *Pool) Workers() int {
	return len(p.deques)
}

// Close destroys every worker deque. The pool cannot be used afterwards.
func (p *Pool) Close() {
	for _, d := range p.deques {
		d.Destroy()
	}
}

// Run executes roots and everything they spawn, and returns once every task has
// run exactly once, a task fails, or ctx is cancelled.
func (p *Pool) Run(ctx context.Context, roots []*Task) (*Report, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer p.running.Store(false)

	expected, maxID, err := census(roots)
	if err != nil {
		return nil, err
	}

	p.seen = make([]atomic.Int32, maxID+1)
	p.duplicates.Store(0)
	p.pending.Store(int64(len(roots)))
	p.overflow.reset()

	for i, t := range roots {
		p.place(p.deques[i%len(p.deques)], t)
	}

	workers := make([]*worker, len(p.deques))
	for i := range workers {
		workers[i] = &worker{
			rank: i,
			pool: p,
			own:  p.deques[i],
			idle: algorithms.NewIdleStrategy(p.cfg.idleType, p.cfg.idleBase, p.cfg.idleLimit),
			buf:  make([]*Task, p.cfg.stealChunk),
		}
	}

	before := p.perceptron.Stats()
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error {
			return w.loop(gctx)
		})
	}
	err = g.Wait()

	report := &Report{
		Scored:     p.cfg.scoring,
		Expected:   expected,
		Duplicates: p.duplicates.Load(),
		Elapsed:    time.Since(start),
		Percept:    diffStats(before, p.perceptron.Stats()),
	}
	for _, w := range workers {
		report.Workers = append(report.Workers, w.stats)
		report.Executed += w.stats.Executed
	}

	if err != nil {
		p.drain()
		return report, err
	}
	return report, nil
}

// place pushes t onto d, falling back to the overflow queue when d is full.
// It reports whether t overflowed.
func (p *Pool) place(d *deque.Deque[*Task], t *Task) bool {
	if err := d.Push(t); err != nil {
		debugLog("push overflow: task=%d err=%v", t.ID, err)
		p.overflow.push(t)
		return true
	}
	return false
}

// drain empties every queue after an aborted run so the next Run starts clean.
func (p *Pool) drain() {
	for _, d := range p.deques {
		for d.Size() > 0 {
			if _, ok := d.Pop(nil, 0); !ok {
				break
			}
		}
	}
	p.overflow.reset()
	p.pending.Store(0)
}

// census counts the tasks in the forest and checks that IDs are non-negative and
// unique, so they can index the delivery table. Nil roots or children are rejected.
func census(roots []*Task) (count int64, maxID int, err error) {
	for i, t := range roots {
		if t == nil {
			return 0, 0, fmt.Errorf("%w: root %d is nil", ErrInvalidTaskID, i)
		}
	}

	ids := make(map[int]struct{})
	Walk(roots, func(t *Task) {
		if err != nil {
			return
		}
		for i, c := range t.Children {
			if c == nil {
				err = fmt.Errorf("%w: child %d of task %d is nil", ErrInvalidTaskID, i, t.ID)
				return
			}
		}
		if t.ID < 0 {
			err = fmt.Errorf("%w: %d is negative", ErrInvalidTaskID, t.ID)
			return
		}
		if _, dup := ids[t.ID]; dup {
			err = fmt.Errorf("%w: %d appears twice", ErrInvalidTaskID, t.ID)
			return
		}
		ids[t.ID] = struct{}{}
		maxID = max(maxID, t.ID)
		count++
	})
	return count, maxID, err
}

type worker struct {
	rank  int
	pool  *Pool
	own   *deque.Deque[*Task]
	idle  algorithms.IdleStrategy
	buf   []*Task
	stats WorkerStats
}

func (w *worker) loop(ctx context.Context) error {
	w.stats.Rank = w.rank

	if w.pool.cfg.pin {
		release, err := cpu.Pin(w.rank)
		defer release()
		if err != nil {
			debugLog("worker %d: pinning failed: %v", w.rank, err)
		}
	}

	var scorer deque.Scorer
	if w.pool.cfg.scoring {
		scorer = w.pool.perceptron
	}

	misses := 0
	for {
		if w.pool.pending.Load() == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		t, ok := w.own.Pop(scorer, w.rank)
		if !ok {
			t, ok = w.pool.overflow.pop()
		}
		if !ok {
			t, ok = w.steal()
		}
		if !ok {
			misses++
			if err := algorithms.Pause(ctx, w.idle, misses); err != nil {
				return err
			}
			continue
		}

		misses = 0
		w.idle.Reset()
		if err := w.execute(ctx, t); err != nil {
			return err
		}
	}
}

// steal takes a chunk from the first peer that has work, starting from a rotating
// victim. The first stolen task is returned and the rest go onto the thief's deque.
func (w *worker) steal() (*Task, bool) {
	n := len(w.pool.deques)
	if n <= 1 {
		return nil, false
	}

	start := int(w.pool.victimSeed.Add(1) % uint64(n)) // #nosec G115 -- n is positive
	for i := range n {
		victim := (start + i) % n
		if victim == w.rank || w.pool.deques[victim].Size() == 0 {
			continue
		}

		got := w.pool.deques[victim].StealInto(w.buf)
		if got == 0 {
			continue
		}

		w.stats.StealOps++
		w.stats.Stolen += int64(got)
		first := w.buf[0]
		for _, t := range w.buf[1:got] {
			if w.pool.place(w.own, t) {
				w.stats.Overflowed++
			}
		}
		clear(w.buf)
		return first, true
	}
	return nil, false
}

func (w *worker) execute(ctx context.Context, t *Task) error {
	if w.pool.seen[t.ID].Add(1) != 1 {
		w.pool.duplicates.Add(1)
	}

	if err := runWithRecovery(ctx, t); err != nil {
		return fmt.Errorf("task %d on worker %d: %w", t.ID, w.rank, err)
	}

	misses := w.pool.cfg.model.Misses(t, w.rank)
	w.pool.perceptron.Update(t, w.rank, misses)

	w.stats.Executed++
	w.stats.Misses += misses
	if t.Home == w.rank {
		w.stats.HomeHits++
	}

	// Children are counted before the parent is retired so pending never reads
	// zero while work is still outstanding.
	for _, child := range t.Children {
		if lim := w.pool.cfg.limiter; lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return err
			}
		}
		w.pool.pending.Add(1)
		if w.pool.place(w.own, child) {
			w.stats.Overflowed++
		}
	}
	w.pool.pending.Add(-1)
	return nil
}

// runWithRecovery runs the task body and converts a panic into an error carrying
// the stack trace.
func runWithRecovery(ctx context.Context, t *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("task panic: %v\nstack trace:\n%s", r, buf[:n])
		}
	}()

	if t.Run != nil {
		return t.Run(ctx)
	}
	burn(t)
	return nil
}

// overflowQueue is the shared FIFO that catches pushes rejected by a full deque.
type overflowQueue struct {
	mu    sync.Mutex
	tasks []*Task
	size  atomic.Int64
}

func (q *overflowQueue) push(t *Task) {
	q.mu.Lock()
	q.tasks = append(q.tasks, t)
	q.size.Add(1)
	q.mu.Unlock()
}

func (q *overflowQueue) pop() (*Task, bool) {
	if q.size.Load() == 0 {
		return nil, false
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, false
	}
	t := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	q.size.Add(-1)
	return t, true
}

func (q *overflowQueue) reset() {
	q.mu.Lock()
	q.tasks = nil
	q.size.Store(0)
	q.mu.Unlock()
}
