// Command perceptbench runs the work-stealing simulation and reports how
// perceptron-guided pops compare with plain LIFO pops.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/utkarsh5026/perceptq/internal/algorithms"
	"github.com/utkarsh5026/perceptq/internal/sim"
)

var (
	bold   = color.New(color.Bold)
	red    = color.New(color.FgRed)
	green  = color.New(color.FgGreen)
	cyan   = color.New(color.FgCyan, color.Bold)
	yellow = color.New(color.FgYellow)
)

type options struct {
	workers  int
	tasks    int
	fanout   int
	types    int
	work     int
	capacity int
	chunk    int
	rate     float64
	burst    int
	pin      bool
	runs     int
	seed     int64
	compare  bool
	idle     string
	ci       bool
}

func parseFlags() options {
	var o options
	flag.IntVar(&o.workers, "workers", runtime.GOMAXPROCS(0), "number of simulated workers")
	flag.IntVar(&o.tasks, "tasks", 20000, "tasks per run, including spawned children")
	flag.IntVar(&o.fanout, "fanout", 4, "children spawned by each task")
	flag.IntVar(&o.types, "types", 8, "distinct task types")
	flag.IntVar(&o.work, "work", 2000, "busy-loop iterations per task")
	flag.IntVar(&o.capacity, "capacity", 256, "fixed capacity of every worker deque")
	flag.IntVar(&o.chunk, "chunk", 4, "maximum tasks taken per steal")
	flag.Float64Var(&o.rate, "rate", 0, "child spawn limit in tasks/sec (0 = unlimited)")
	flag.IntVar(&o.burst, "burst", 64, "spawn limiter burst size")
	flag.BoolVar(&o.pin, "pin", false, "pin each worker to a CPU core")
	flag.IntVar(&o.runs, "runs", 5, "runs per mode; the perceptron keeps learning across runs")
	flag.Int64Var(&o.seed, "seed", 1, "workload generator seed")
	flag.BoolVar(&o.compare, "compare", true, "also run with scoring disabled")
	flag.StringVar(&o.idle, "idle", "tiered", "idle strategy: tiered, exponential, jittered, decorrelated")
	flag.BoolVar(&o.ci, "ci", false, "plain output without a progress bar")
	flag.Parse()
	return o
}

func main() {
	o := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, o); err != nil {
		_, _ = red.Fprintf(os.Stderr, "perceptbench: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options) error {
	idleType, ok := algorithms.ParseIdleType(o.idle)
	if !ok {
		return fmt.Errorf("unknown idle strategy %q", o.idle)
	}
	if o.runs <= 0 {
		return fmt.Errorf("runs must be positive, got %d", o.runs)
	}

	printHeader(o)

	modes := []bool{true}
	if o.compare {
		modes = append(modes, false)
	}

	var bar *progressbar.ProgressBar
	if !o.ci {
		bar = progressbar.NewOptions(len(modes)*o.runs,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Simulating"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionClearOnFinish(),
		)
	}

	var results []modeResult
	for _, scored := range modes {
		res, err := runMode(ctx, o, idleType, scored, bar)
		if err != nil {
			return err
		}
		results = append(results, res)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	for _, res := range results {
		renderWorkers(res)
	}
	renderSummary(results)
	return nil
}

// modeResult holds every run of one pop mode. The last run is the one shown per
// worker, since by then the perceptron has had the most time to learn.
type modeResult struct {
	scored  bool
	reports []*sim.Report
}

func (m modeResult) name() string {
	if m.scored {
		return "perceptron"
	}
	return "lifo"
}

func (m modeResult) last() *sim.Report {
	return m.reports[len(m.reports)-1]
}

func runMode(ctx context.Context, o options, idleType algorithms.IdleType, scored bool, bar *progressbar.ProgressBar) (modeResult, error) {
	pool, err := sim.New(
		sim.WithWorkers(o.workers),
		sim.WithCapacity(o.capacity),
		sim.WithStealChunk(o.chunk),
		sim.WithSpawnRate(o.rate, o.burst),
		sim.WithPinning(o.pin),
		sim.WithScoring(scored),
		sim.WithIdle(idleType, 50*time.Microsecond, 5*time.Millisecond),
	)
	if err != nil {
		return modeResult{}, err
	}
	defer pool.Close()

	res := modeResult{scored: scored}
	workload := sim.Workload{
		Tasks:   o.tasks,
		Roots:   1,
		Fanout:  o.fanout,
		Types:   o.types,
		Workers: pool.Workers(),
		Work:    o.work,
		Seed:    o.seed,
	}

	for i := range o.runs {
		if o.ci {
			fmt.Printf("[%s %d/%d] running %d tasks\n", res.name(), i+1, o.runs, o.tasks)
		}

		report, err := pool.Run(ctx, workload.Build())
		if err != nil {
			return res, fmt.Errorf("%s run %d: %w", res.name(), i+1, err)
		}
		if !report.Complete() {
			return res, fmt.Errorf("%s run %d: executed %d of %d tasks (%d duplicates)",
				res.name(), i+1, report.Executed, report.Expected, report.Duplicates)
		}
		res.reports = append(res.reports, report)

		if bar != nil {
			_ = bar.Add(1)
		}
	}
	return res, nil
}

func printHeader(o options) {
	fmt.Println()
	colorPrintLn(cyan, "PERCEPTRON WORK-STEALING SIMULATION")
	colorPrintf(bold, "  workers=%d tasks=%d fanout=%d capacity=%d chunk=%d runs=%d idle=%s\n",
		o.workers, o.tasks, o.fanout, o.capacity, o.chunk, o.runs, o.idle)
	if o.rate > 0 {
		colorPrintf(yellow, "  spawn rate limited to %.0f tasks/sec (burst %d)\n", o.rate, o.burst)
	}
	if o.pin {
		colorPrintLn(yellow, "  workers pinned to cores")
	}
	fmt.Println()
}
