// Package meminfo reads the memory-related facts of the host and of
// running processes: totals, page size, per-process resident set size,
// and the Linux knobs that decide how an oversized allocation fails.
package meminfo

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Overcommit modes as reported by /proc/sys/vm/overcommit_memory.
const (
	OvercommitHeuristic = 0
	OvercommitAlways    = 1
	OvercommitNever     = 2
)

// TotalMemory returns total physical memory in bytes.
func TotalMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil || vm.Total == 0 {
		if phys := physicalMemoryFallback(); phys > 0 {
			return phys, nil
		}
		if err == nil {
			err = fmt.Errorf("total memory unavailable")
		}
		return 0, err
	}
	return vm.Total, nil
}

// AvailableMemory returns the memory currently available for new
// allocations in bytes.
func AvailableMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("virtual memory: %w", err)
	}
	return vm.Available, nil
}

// ProcessRSS returns the resident set size of a process in bytes.
func ProcessRSS(pid int32) (uint64, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("process %d: %w", pid, err)
	}
	info, err := p.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("memory info for pid %d: %w", pid, err)
	}
	return info.RSS, nil
}
