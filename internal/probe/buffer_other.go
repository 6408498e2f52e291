//go:build !unix

package probe

import (
	"fmt"
	"math"
)

// allocBytes reserves size bytes on the heap. Platforms without an
// anonymous mmap cannot report a refused reservation cleanly, so an
// out-of-range length is converted into the failed-allocation verdict
// here instead of aborting.
func allocBytes(size int64) (data []byte, err error) {
	if size > math.MaxInt {
		return nil, fmt.Errorf("buffer size %d exceeds address space", size)
	}
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = fmt.Errorf("allocate %d bytes: %v", size, r)
		}
	}()
	return make([]byte, size), nil
}

func freeBytes(data []byte) error {
	return nil
}
