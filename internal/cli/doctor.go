package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/clusterprobe/memprobe/internal/limits"
	"github.com/clusterprobe/memprobe/internal/meminfo"
	"github.com/clusterprobe/memprobe/internal/probe"
	"github.com/spf13/cobra"
)

func init() {
	doctorCmd.RunE = runDoctor
}

// diagnosticReport describes the allocation environment the probe will
// run in and what an oversized request should do to the process there.
type diagnosticReport struct {
	OS            string
	Arch          string
	GoVersion     string
	RunningAsRoot bool

	TotalMemoryBytes     uint64
	AvailableMemoryBytes uint64
	PageSizeBytes        int64
	DefaultProbeBytes    int64

	OvercommitMode         string
	CgroupsVersion         string
	AddressSpaceLimited    bool
	AddressSpaceLimitBytes uint64

	Enforcer         string
	Capabilities     limits.Capabilities
	OversizedOutcome string
	Warnings         []string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	info := collectDiagnostics()

	if jsonOutput {
		return outputDoctorJSON(cmd.OutOrStdout(), &info)
	}
	return outputDoctorText(cmd.OutOrStdout(), &info)
}

func collectDiagnostics() diagnosticReport {
	enforcer := limits.New()
	caps := enforcer.Capabilities()

	info := diagnosticReport{
		OS:                runtime.GOOS,
		Arch:              runtime.GOARCH,
		GoVersion:         runtime.Version(),
		RunningAsRoot:     os.Geteuid() == 0,
		PageSizeBytes:     meminfo.PageSize(),
		DefaultProbeBytes: probe.DefaultBytes,
		CgroupsVersion:    meminfo.CgroupsVersion(),
		Enforcer:          enforcer.Name(),
		Capabilities:      caps,
	}
	info.Warnings = append(info.Warnings, caps.Warnings...)

	if total, err := meminfo.TotalMemory(); err == nil {
		info.TotalMemoryBytes = total
	} else {
		info.Warnings = append(info.Warnings, fmt.Sprintf("total memory unavailable: %v", err))
	}
	if avail, err := meminfo.AvailableMemory(); err == nil {
		info.AvailableMemoryBytes = avail
	}

	if mode, desc, err := meminfo.OvercommitPolicy(); err == nil {
		info.OvercommitMode = desc
		info.OversizedOutcome = predictOversizedOutcome(mode)
	} else {
		info.OvercommitMode = "unknown"
		info.OversizedOutcome = "unknown"
	}

	if limit, limited, err := meminfo.AddressSpaceLimit(); err == nil && limited {
		info.AddressSpaceLimited = true
		info.AddressSpaceLimitBytes = limit
	}

	return info
}

// predictOversizedOutcome names the terminal state an oversized probe
// request should produce under the host's overcommit policy. Under
// strict accounting the reservation itself is refused and the probe
// prints its failure verdict; otherwise the reservation is granted and
// the kernel kills the probe while it commits the pages.
func predictOversizedOutcome(mode int) string {
	if mode == meminfo.OvercommitNever {
		return outcomeRefused
	}
	return outcomeEnforced
}

func outputDoctorText(w io.Writer, info *diagnosticReport) error {
	// Header
	fmt.Fprintf(w, "Memory Probe Diagnostics\n")
	fmt.Fprintf(w, "========================\n\n")

	// System Information
	fmt.Fprintf(w, "System Information:\n")
	fmt.Fprintf(w, "  OS:          %s\n", info.OS)
	fmt.Fprintf(w, "  Arch:        %s\n", info.Arch)
	fmt.Fprintf(w, "  Go Version:  %s\n", info.GoVersion)
	if info.RunningAsRoot {
		fmt.Fprintf(w, "  Running as:  root/admin\n")
	} else {
		fmt.Fprintf(w, "  Running as:  non-root user\n")
	}
	fmt.Fprintln(w)

	// Memory
	fmt.Fprintf(w, "Memory:\n")
	fmt.Fprintf(w, "  Total:         %s\n", formatBytes(int64(info.TotalMemoryBytes)))
	fmt.Fprintf(w, "  Available:     %s\n", formatBytes(int64(info.AvailableMemoryBytes)))
	fmt.Fprintf(w, "  Page size:     %d B\n", info.PageSizeBytes)
	fmt.Fprintf(w, "  Default probe: %s (%d bytes)\n", formatBytes(info.DefaultProbeBytes), info.DefaultProbeBytes)
	fmt.Fprintln(w)

	// Enforcement capabilities
	fmt.Fprintf(w, "Enforcement Capabilities (%s):\n", info.Enforcer)
	printCapability(w, "Address Space Limiting", info.Capabilities.AddressSpaceLimit)
	printCapability(w, "Memory Max Limiting", info.Capabilities.MemoryMax)
	printCapability(w, "Cgroups", info.Capabilities.Cgroups)
	fmt.Fprintln(w)

	// Platform-specific information
	if info.OS == "linux" {
		fmt.Fprintf(w, "Linux-Specific Information:\n")
		fmt.Fprintf(w, "  Cgroups Version:   %s\n", info.CgroupsVersion)
		fmt.Fprintf(w, "  Overcommit Policy: %s\n", info.OvercommitMode)
		if info.AddressSpaceLimited {
			fmt.Fprintf(w, "  Address Space Cap: %s\n", formatBytes(int64(info.AddressSpaceLimitBytes)))
		} else {
			fmt.Fprintf(w, "  Address Space Cap: unlimited\n")
		}
		fmt.Fprintln(w)
	}

	// Warnings
	if len(info.Warnings) > 0 {
		fmt.Fprintf(w, "Warnings:\n")
		for _, warning := range info.Warnings {
			fmt.Fprintf(w, "  [!] %s\n", warning)
		}
		fmt.Fprintln(w)
	}

	// Summary
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  An oversized probe run here should end: %s\n", info.OversizedOutcome)

	return nil
}

func outputDoctorJSON(w io.Writer, info *diagnosticReport) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func printCapability(w io.Writer, name string, enabled bool) {
	status := "✗"
	if enabled {
		status = "✓"
	}
	fmt.Fprintf(w, "  [%s] %s\n", status, name)
}
