package probe

import (
	"fmt"
	"unsafe"
)

// SlotSize is the width of one fill slot in bytes. The buffer is
// written as float64 values, so a request is committed in units of
// eight bytes; a remainder shorter than one slot is allocated but
// never written.
const SlotSize = 8

// Buffer is a contiguous anonymous memory region of fixed size.
// A nil Buffer represents a failed allocation: every method is
// nil-safe so the run sequence can proceed to its verdict without
// branching on the allocation result.
type Buffer struct {
	data []byte
}

// Alloc reserves size bytes. A zero size yields an empty buffer.
// A negative size, or a reservation the kernel refuses, yields a nil
// buffer and an error.
func Alloc(size int64) (*Buffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("invalid buffer size: %d", size)
	}
	if size == 0 {
		return &Buffer{}, nil
	}

	data, err := allocBytes(size)
	if err != nil {
		return nil, err
	}
	return &Buffer{data: data}, nil
}

// Size returns the allocated size in bytes.
func (b *Buffer) Size() int64 {
	if b == nil {
		return 0
	}
	return int64(len(b.data))
}

// SlotCount returns how many full float64 slots fit in the buffer.
func (b *Buffer) SlotCount() int64 {
	if b == nil {
		return 0
	}
	return int64(len(b.data) / SlotSize)
}

// Slots returns the buffer viewed as float64 values. The remainder
// bytes past the last full slot are not part of the view.
func (b *Buffer) Slots() []float64 {
	if b == nil || len(b.data) < SlotSize {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&b.data[0])), len(b.data)/SlotSize)
}

// Bytes returns the raw underlying region.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Fill writes v into every slot, forcing the kernel to commit the
// pages behind the reservation. Filling an overcommitted buffer may
// end the process; that termination is the caller's signal and is not
// intercepted here.
func (b *Buffer) Fill(v float64) {
	for i, slots := 0, b.Slots(); i < len(slots); i++ {
		slots[i] = v
	}
}

// Free releases the region. It is a no-op on a nil or already freed
// buffer.
func (b *Buffer) Free() error {
	if b == nil || b.data == nil {
		return nil
	}
	err := freeBytes(b.data)
	b.data = nil
	return err
}
