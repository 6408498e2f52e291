//go:build linux

package meminfo

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// OvercommitPolicy reads the kernel overcommit mode. The mode decides
// how an oversized reservation fails: under "never" the reservation
// itself is refused, under "heuristic" and "always" the reservation is
// granted and the process dies later, while committing the pages.
func OvercommitPolicy() (int, string, error) {
	data, err := os.ReadFile("/proc/sys/vm/overcommit_memory")
	if err != nil {
		return 0, "", fmt.Errorf("cannot read overcommit policy: %w", err)
	}

	raw := strings.TrimSpace(string(data))
	mode, err := strconv.Atoi(raw)
	if err != nil {
		return 0, "", fmt.Errorf("unexpected overcommit value %q: %w", raw, err)
	}

	return mode, overcommitDescription(mode), nil
}

func overcommitDescription(mode int) string {
	switch mode {
	case OvercommitHeuristic:
		return "heuristic"
	case OvercommitAlways:
		return "always"
	case OvercommitNever:
		return "never"
	}
	return "unknown"
}

// CgroupsVersion reports which cgroups hierarchy is mounted.
func CgroupsVersion() string {
	if _, err := os.Stat("/sys/fs/cgroup/cgroup.controllers"); err == nil {
		return "v2"
	}
	if _, err := os.Stat("/sys/fs/cgroup/cpu"); err == nil {
		return "v1"
	}
	return "unavailable"
}

// AddressSpaceLimit returns the current RLIMIT_AS ceiling of this
// process and whether one is set at all.
func AddressSpaceLimit() (uint64, bool, error) {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_AS, &rlim); err != nil {
		return 0, false, fmt.Errorf("getrlimit RLIMIT_AS: %w", err)
	}
	if rlim.Cur == unix.RLIM_INFINITY {
		return 0, false, nil
	}
	return rlim.Cur, true, nil
}
