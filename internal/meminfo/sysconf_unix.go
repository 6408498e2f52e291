//go:build linux || darwin

package meminfo

import (
	"os"

	"github.com/tklauser/go-sysconf"
)

// PageSize returns the system page size in bytes.
func PageSize() int64 {
	if size, err := sysconf.Sysconf(sysconf.SC_PAGE_SIZE); err == nil && size > 0 {
		return size
	}
	return int64(os.Getpagesize())
}

// physicalMemoryFallback derives total physical memory from sysconf
// when the primary source has nothing to say.
func physicalMemoryFallback() uint64 {
	pages, err := sysconf.Sysconf(sysconf.SC_PHYS_PAGES)
	if err != nil || pages <= 0 {
		return 0
	}
	size, err := sysconf.Sysconf(sysconf.SC_PAGE_SIZE)
	if err != nil || size <= 0 {
		return 0
	}
	return uint64(pages) * uint64(size)
}
