//go:build !debug

package sim

func debugLog(string, ...interface{}) {}
