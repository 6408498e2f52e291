//go:build !linux

package meminfo

import (
	"fmt"
	"runtime"
)

// OvercommitPolicy is a Linux concept; other platforms report it as
// unavailable.
func OvercommitPolicy() (int, string, error) {
	return 0, "", fmt.Errorf("overcommit policy not available on %s", runtime.GOOS)
}

// CgroupsVersion reports which cgroups hierarchy is mounted.
func CgroupsVersion() string {
	return "unavailable"
}

// AddressSpaceLimit returns the current RLIMIT_AS ceiling of this
// process and whether one is set at all.
func AddressSpaceLimit() (uint64, bool, error) {
	return 0, false, fmt.Errorf("address space limit not available on %s", runtime.GOOS)
}
