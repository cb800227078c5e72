//go:build !linux && !windows

package cpu

import "runtime"

// Pin locks the calling goroutine to its OS thread. Core pinning is not
// available on this platform, so rank is ignored.
func Pin(rank int) (release func(), err error) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread, nil
}

// Core is not tracked on this platform.
func Core() int {
	return -1
}
