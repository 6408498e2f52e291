//go:build unix

package probe

import (
	"fmt"
	"math"

	"golang.org/x/sys/unix"
)

// allocBytes reserves size bytes of anonymous private memory via mmap.
// Unlike a heap allocation, a refused reservation surfaces as an error
// instead of aborting the runtime, which keeps the failed-allocation
// verdict reachable.
func allocBytes(size int64) ([]byte, error) {
	if size > math.MaxInt {
		return nil, fmt.Errorf("buffer size %d exceeds address space", size)
	}
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}
	return data, nil
}

// freeBytes unmaps a region returned by allocBytes.
func freeBytes(data []byte) error {
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}
