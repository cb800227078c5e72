//go:build linux

package cpu

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// Pin locks the calling goroutine to its OS thread and restricts that thread to
// the core rank maps onto. The returned release func unlocks the thread; it must be
// called from the same goroutine. When the affinity call fails the thread stays
// locked and the error is returned together with a valid release func.
func Pin(rank int) (release func(), err error) {
	runtime.LockOSThread()
	release = runtime.UnlockOSThread

	var set unix.CPUSet
	set.Zero()
	set.Set(coreFor(rank))

	// pid 0 is the calling thread.
	return release, unix.SchedSetaffinity(0, &set)
}

// Core reports the core the calling thread is currently allowed to run on when its
// affinity mask holds exactly one CPU, and -1 otherwise.
func Core() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil || set.Count() != 1 {
		return -1
	}
	for i := range runtime.NumCPU() {
		if set.IsSet(i) {
			return i
		}
	}
	return -1
}
