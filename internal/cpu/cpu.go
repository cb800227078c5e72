// Package cpu pins worker goroutines to OS threads and, where the platform allows,
// to a single core so that a worker rank keeps a stable cache.
package cpu

import "runtime"

// NumCPU returns the number of logical CPUs available to the process.
func NumCPU() int {
	return runtime.NumCPU()
}

// coreFor folds a worker rank onto the available cores.
func coreFor(rank int) int {
	n := runtime.NumCPU()
	if rank < 0 {
		rank = -rank
	}
	return rank % n
}
