//go:build linux

package limits

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"
)

func init() {
	platformNewEnforcer = func() Enforcer {
		return newLinuxEnforcer()
	}
}

// LinuxEnforcer caps child memory with prlimit(2) and cgroups v2.
// Both ceilings are applied after the child has started, by PID: Go's
// SysProcAttr has no rlimit field on Linux, and cgroup assignment
// needs the PID anyway.
type LinuxEnforcer struct {
	useCgroups bool
	cgroupRoot string

	mu             sync.Mutex
	pendingLimits  *Limits
	trackedCgroups map[int]string // pid -> cgroup path for cleanup
	logger         *slog.Logger
}

func newLinuxEnforcer() *LinuxEnforcer {
	e := &LinuxEnforcer{
		cgroupRoot:     "/sys/fs/cgroup",
		trackedCgroups: make(map[int]string),
		logger:         slog.Default(),
	}

	if _, err := os.Stat(filepath.Join(e.cgroupRoot, "cgroup.controllers")); err == nil {
		e.useCgroups = true
		e.logger.Debug("cgroups v2 detected and available")
	} else {
		e.logger.Debug("cgroups v2 not available - memory ceiling limited to RLIMIT_AS")
	}

	return e
}

// Apply stores the limits for PostStart. The command itself needs no
// modification; everything is applied to the running child by PID.
func (e *LinuxEnforcer) Apply(cmd *exec.Cmd, lim *Limits) error {
	if cmd == nil || lim == nil {
		return fmt.Errorf("command and limits cannot be nil")
	}

	e.mu.Lock()
	e.pendingLimits = lim
	e.mu.Unlock()

	e.logger.Debug("limits will be applied after the child starts",
		slog.String("memory_max", lim.MaxMemory),
		slog.String("address_space", lim.MaxAddressSpace),
	)
	return nil
}

// PostStart applies the address space cap and the cgroup memory cap to
// a running child. The cgroup side is best-effort: without write
// access to the cgroup hierarchy only RLIMIT_AS is enforced.
func (e *LinuxEnforcer) PostStart(pid int, lim *Limits) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid: %d", pid)
	}

	useLimits := lim
	if useLimits == nil {
		e.mu.Lock()
		useLimits = e.pendingLimits
		e.mu.Unlock()
	}
	if useLimits == nil {
		return fmt.Errorf("no limits to apply")
	}

	if err := e.applyPrlimit(pid, useLimits); err != nil {
		return err
	}

	if e.useCgroups && useLimits.MaxMemory != "" {
		if err := e.applyCgroupV2(pid, useLimits); err != nil {
			e.logger.Debug("cgroup v2 application failed (non-critical)", slog.String("error", err.Error()))
		}
	}

	return nil
}

// applyPrlimit caps the child's virtual address space via prlimit(2).
// A reservation past the cap fails with ENOMEM inside the child, which
// the probe reports as its failed-allocation verdict.
func (e *LinuxEnforcer) applyPrlimit(pid int, lim *Limits) error {
	if lim.MaxAddressSpace == "" {
		return nil
	}

	size, err := ParseMemory(lim.MaxAddressSpace)
	if err != nil {
		return fmt.Errorf("address space limit: %w", err)
	}

	rlim := unix.Rlimit{Cur: uint64(size), Max: uint64(size)}
	if err := unix.Prlimit(pid, unix.RLIMIT_AS, &rlim, nil); err != nil {
		return fmt.Errorf("prlimit RLIMIT_AS: %w", err)
	}

	e.logger.Debug("RLIMIT_AS set via prlimit",
		slog.Int("pid", pid),
		slog.Int64("bytes", size),
	)
	return nil
}

// applyCgroupV2 moves the child into a fresh cgroup and writes the
// memory ceiling. Swap is pinned to zero so the kernel reclaims by
// killing rather than by paging the probe out.
func (e *LinuxEnforcer) applyCgroupV2(pid int, lim *Limits) error {
	size, err := ParseMemory(lim.MaxMemory)
	if err != nil {
		return fmt.Errorf("memory limit: %w", err)
	}

	cgroupPath := filepath.Join(e.cgroupRoot, fmt.Sprintf("memprobe-%d", pid))
	if err := os.Mkdir(cgroupPath, 0o755); err != nil {
		return fmt.Errorf("cannot create cgroup directory (may require elevated privileges): %w", err)
	}

	if err := os.WriteFile(filepath.Join(cgroupPath, "cgroup.procs"), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		_ = os.RemoveAll(cgroupPath)
		return fmt.Errorf("cannot add process to cgroup: %w", err)
	}

	e.mu.Lock()
	e.trackedCgroups[pid] = cgroupPath
	e.mu.Unlock()

	memStr := strconv.FormatInt(size, 10)
	if err := os.WriteFile(filepath.Join(cgroupPath, "memory.max"), []byte(memStr), 0o644); err != nil {
		return fmt.Errorf("cannot set memory.max: %w", err)
	}

	if err := os.WriteFile(filepath.Join(cgroupPath, "memory.swap.max"), []byte("0"), 0o644); err != nil {
		e.logger.Debug("failed to set memory.swap.max", slog.String("error", err.Error()))
	}

	e.logger.Debug("memory.max set via cgroups v2",
		slog.Int("pid", pid),
		slog.String("bytes", memStr),
	)
	return nil
}

// Cleanup removes the cgroup directory created for a child.
func (e *LinuxEnforcer) Cleanup(pid int) error {
	e.mu.Lock()
	cgroupPath, exists := e.trackedCgroups[pid]
	if !exists {
		e.mu.Unlock()
		return nil
	}
	delete(e.trackedCgroups, pid)
	e.mu.Unlock()

	if err := os.RemoveAll(cgroupPath); err != nil {
		e.logger.Debug("failed to cleanup cgroup", slog.String("path", cgroupPath), slog.String("error", err.Error()))
		return nil
	}

	e.logger.Debug("cgroup cleaned up", slog.String("path", cgroupPath))
	return nil
}

func (e *LinuxEnforcer) Capabilities() Capabilities {
	caps := Capabilities{
		AddressSpaceLimit: true,
		MemoryMax:         e.useCgroups,
		Cgroups:           e.useCgroups,
	}

	if !e.useCgroups {
		caps.Warnings = append(caps.Warnings,
			"[DEGRADED] cgroups v2 not available - oversized fills cannot be OOM killed, only refused via RLIMIT_AS",
		)
	}
	caps.Warnings = append(caps.Warnings,
		"[INFO] RLIMIT_AS counts the whole address space of the child; leave headroom for its runtime",
	)

	return caps
}

func (e *LinuxEnforcer) Name() string {
	return "linux"
}
