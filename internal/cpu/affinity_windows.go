//go:build windows

package cpu

import (
	"runtime"
	"syscall"
)

var (
	kernel32              = syscall.NewLazyDLL("kernel32.dll")
	setThreadAffinityMask = kernel32.NewProc("SetThreadAffinityMask")
	getCurrentThread      = kernel32.NewProc("GetCurrentThread")
)

// Pin locks the calling goroutine to its OS thread and sets that thread's affinity
// mask to the single core rank maps onto.
func Pin(rank int) (release func(), err error) {
	runtime.LockOSThread()
	release = runtime.UnlockOSThread

	handle, _, _ := getCurrentThread.Call()
	prev, _, callErr := setThreadAffinityMask.Call(handle, uintptr(1)<<uint(coreFor(rank)))
	if prev == 0 {
		return release, callErr
	}
	return release, nil
}

// Core is not tracked on Windows.
func Core() int {
	return -1
}
