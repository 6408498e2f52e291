// Package limits applies memory ceilings to probe child processes so
// that enforcement behavior can be verified without an external
// scheduler. Two mechanisms are supported on Linux: an address space
// cap via prlimit(2), which makes oversized reservations fail cleanly,
// and a cgroup v2 memory.max cap, which lets the kernel kill the
// process once the fill phase commits too many pages.
package limits

import (
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Limits describes the ceilings applied to one probe child.
type Limits struct {
	// MaxMemory caps resident memory via cgroup v2 memory.max,
	// e.g. "64M". Empty disables the cgroup cap.
	MaxMemory string

	// MaxAddressSpace caps virtual address space via RLIMIT_AS,
	// e.g. "3G". Empty leaves the limit untouched. The cap counts all
	// mappings of the child including its runtime, so it needs
	// headroom beyond the probe request itself.
	MaxAddressSpace string

	// Timeout bounds how long the child may run overall.
	Timeout time.Duration
}

// Enforcer applies resource ceilings to a child process.
type Enforcer interface {
	// Apply prepares a command for limited execution. It must be
	// called before the command starts.
	Apply(cmd *exec.Cmd, lim *Limits) error

	// PostStart applies the ceilings that need the child PID
	// (prlimit, cgroup assignment).
	PostStart(pid int, lim *Limits) error

	// Cleanup releases per-process resources such as cgroup
	// directories.
	Cleanup(pid int) error

	// Capabilities returns what this enforcer can actually enforce.
	Capabilities() Capabilities

	// Name returns the enforcer implementation name.
	Name() string
}

// Capabilities describes which ceilings are available.
type Capabilities struct {
	AddressSpaceLimit bool
	MemoryMax         bool
	Cgroups           bool
	Warnings          []string
}

// New returns the enforcer for the current platform, falling back to a
// no-op implementation where no mechanism exists.
func New() Enforcer {
	if e := platformNewEnforcer(); e != nil {
		return e
	}
	return &NoopEnforcer{}
}

// platformNewEnforcer is replaced by platform files via init.
var platformNewEnforcer = func() Enforcer {
	return nil
}

// NoopEnforcer applies nothing. It keeps the caller's lifecycle
// uniform on platforms without enforcement support.
type NoopEnforcer struct{}

func (e *NoopEnforcer) Apply(cmd *exec.Cmd, lim *Limits) error {
	if cmd == nil || lim == nil {
		return fmt.Errorf("command and limits cannot be nil")
	}
	return nil
}

func (e *NoopEnforcer) PostStart(pid int, lim *Limits) error {
	return nil
}

func (e *NoopEnforcer) Cleanup(pid int) error {
	return nil
}

func (e *NoopEnforcer) Capabilities() Capabilities {
	return Capabilities{
		Warnings: []string{"platform does not support memory limit enforcement"},
	}
}

func (e *NoopEnforcer) Name() string {
	return "noop"
}

// ParseMemory parses memory strings like "512M", "1G" into bytes.
func ParseMemory(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("memory string cannot be empty")
	}

	val := parseMemoryString(s)
	if val <= 0 {
		return 0, fmt.Errorf("invalid memory string: %s", s)
	}

	return val, nil
}

// parseMemoryString converts a size with an optional binary suffix
// into bytes, yielding zero on malformed input.
func parseMemoryString(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	var multiplier int64 = 1
	switch {
	case strings.HasSuffix(s, "G"):
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "G")
	case strings.HasSuffix(s, "M"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "K"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "K")
	}

	var val int64
	_, _ = fmt.Sscanf(s, "%d", &val) //nolint:errcheck // parse errors result in zero value
	return val * multiplier
}
