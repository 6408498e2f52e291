//go:build !linux && !darwin

package meminfo

import "os"

// PageSize returns the system page size in bytes.
func PageSize() int64 {
	return int64(os.Getpagesize())
}

func physicalMemoryFallback() uint64 {
	return 0
}
