//go:build !debug

package deque

func debugLog(string, ...interface{}) {}
