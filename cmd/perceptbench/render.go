package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/utkarsh5026/perceptq/internal/sim"
)

func colorPrintLn(c *color.Color, a ...any) {
	_, _ = c.Println(a...)
}

func colorPrintf(c *color.Color, format string, a ...any) {
	_, _ = c.Printf(format, a...)
}

func printSectionHeader(title string, lines ...string) {
	fmt.Println()
	colorPrintLn(bold, strings.Repeat("=", 60))
	colorPrintLn(bold, title)
	colorPrintLn(bold, strings.Repeat("=", 60))
	for _, l := range lines {
		colorPrintLn(yellow, l)
	}
}

func renderWorkers(res modeResult) {
	r := res.last()
	printSectionHeader(
		fmt.Sprintf("WORKERS (%s, run %d)", strings.ToUpper(res.name()), len(res.reports)),
		"Home = tasks that ran on the worker whose cache was warm for them")

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Worker", "Executed", "Home", "Stolen", "Steals", "Overflow", "Avg Misses")

	for _, w := range r.Workers {
		_ = table.Append(
			fmt.Sprintf("%d", w.Rank),
			formatNumber(w.Executed),
			formatNumber(w.HomeHits),
			formatNumber(w.Stolen),
			formatNumber(w.StealOps),
			formatNumber(w.Overflowed),
			fmt.Sprintf("%.1f", perTask(w.Misses, w.Executed)),
		)
	}

	if err := table.Render(); err != nil {
		colorPrintLn(red, "Error in rendering worker table")
	}
}

func renderSummary(results []modeResult) {
	printSectionHeader("SUMMARY",
		"Averages over every run; lower misses and higher home rate are better")

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Mode", "Runs", "Avg Time", "Tasks/sec", "Avg Misses", "Home Rate", "Weight Updates")

	for _, res := range results {
		s := summarize(res.reports)
		_ = table.Append(
			res.name(),
			fmt.Sprintf("%d", len(res.reports)),
			s.elapsed.Round(time.Microsecond).String(),
			formatNumber(int64(s.throughput)),
			fmt.Sprintf("%.1f", s.misses),
			fmt.Sprintf("%.1f%%", s.homeRate*100),
			formatNumber(int64(s.updates)), // #nosec G115 -- update counts fit in int64
		)
	}

	if err := table.Render(); err != nil {
		colorPrintLn(red, "Error in rendering summary table")
	}

	if len(results) < 2 {
		return
	}

	scored, lifo := summarize(results[0].reports), summarize(results[1].reports)
	if lifo.misses == 0 {
		return
	}
	change := (lifo.misses - scored.misses) / lifo.misses * 100
	fmt.Println()
	if change >= 0 {
		colorPrintf(green, "Perceptron pops cut simulated misses by %.1f%% vs LIFO\n", change)
	} else {
		colorPrintf(red, "Perceptron pops added %.1f%% simulated misses vs LIFO\n", -change)
	}
}

type summary struct {
	elapsed    time.Duration
	throughput float64
	misses     float64
	homeRate   float64
	updates    uint64
}

func summarize(reports []*sim.Report) summary {
	var s summary
	if len(reports) == 0 {
		return s
	}
	for _, r := range reports {
		s.elapsed += r.Elapsed
		s.throughput += r.Throughput()
		s.misses += r.AvgMisses()
		s.homeRate += r.HomeRate()
		s.updates += r.Percept.Raised + r.Percept.Lowered
	}
	n := float64(len(reports))
	s.elapsed /= time.Duration(len(reports))
	s.throughput /= n
	s.misses /= n
	s.homeRate /= n
	return s
}

func perTask(total, tasks int64) float64 {
	if tasks == 0 {
		return 0
	}
	return float64(total) / float64(tasks)
}

// formatNumber formats n with comma separators.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}
