package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/clusterprobe/memprobe/internal/limits"
	"github.com/clusterprobe/memprobe/internal/meminfo"
	"github.com/clusterprobe/memprobe/internal/probe"
	"github.com/clusterprobe/memprobe/internal/report"
	"github.com/spf13/cobra"
)

// Terminal outcomes of a verified probe run.
const (
	outcomeCompleted = "completed" // exit 0, memory allocated and freed
	outcomeRefused   = "refused"   // exit 1 with the failure verdict on stdout
	outcomeEnforced  = "enforced"  // killed by the kernel or a fault while filling
	outcomeTimeout   = "timeout"   // exceeded the overall deadline
	outcomeFailed    = "failed"    // any other abnormal exit
)

// verifyCmdFlags holds flags for the verify command
type verifyCmdFlags struct {
	bytes        int64
	hold         int
	limit        string
	addressSpace string
	timeout      time.Duration
	expect       string
	report       string
}

var verifyFlags verifyCmdFlags

func init() {
	verifyCmd.RunE = runVerify
	verifyCmd.Flags().Int64Var(&verifyFlags.bytes, "bytes", probe.DefaultBytes, "Bytes the child probe requests")
	verifyCmd.Flags().IntVar(&verifyFlags.hold, "hold", 2, "Seconds the child probe holds the memory")
	verifyCmd.Flags().StringVar(&verifyFlags.limit, "limit", "", "Resident memory ceiling for the child, e.g. 32M (cgroup v2, overrides config)")
	verifyCmd.Flags().StringVar(&verifyFlags.addressSpace, "address-space", "", "Address space ceiling for the child, e.g. 3G (RLIMIT_AS, overrides config)")
	verifyCmd.Flags().DurationVar(&verifyFlags.timeout, "timeout", 0, "Overall deadline for the child (overrides config)")
	verifyCmd.Flags().StringVar(&verifyFlags.expect, "expect", outcomeEnforced, "Expected outcome: completed, refused, enforced or timeout")
	verifyCmd.Flags().StringVar(&verifyFlags.report, "report", "", "Append a JSONL run record to this file (overrides config)")
}

// probeResult is the observed terminal state of one probe child.
type probeResult struct {
	outcome     string
	exitCode    int
	signal      string
	peakRSS     uint64
	duration    time.Duration
	childStdout string
}

// runVerify re-executes this binary as a probe child under the
// configured memory ceilings and classifies how it ended. This stands
// in for the external scheduler: the same exit statuses and console
// lines it would assert are asserted here, locally.
func runVerify(cmd *cobra.Command, args []string) error {
	logger := createLogger(activeLogLevel())

	if !validOutcome(verifyFlags.expect) {
		return fmt.Errorf("invalid expected outcome: %s", verifyFlags.expect)
	}

	limit, addressSpace, reportPath, timeout := resolveVerifySettings()

	lim := &limits.Limits{
		MaxMemory:       limit,
		MaxAddressSpace: addressSpace,
		Timeout:         timeout,
	}

	enforcer := limits.New()
	caps := enforcer.Capabilities()
	if limit != "" && !caps.MemoryMax {
		logger.Warn("memory ceiling requested but not enforceable on this host", slog.String("limit", limit))
	}
	if addressSpace != "" && !caps.AddressSpaceLimit {
		logger.Warn("address space ceiling requested but not enforceable on this host", slog.String("address_space", addressSpace))
	}

	var recorder *report.Recorder
	if reportPath != "" {
		var err error
		recorder, err = report.NewRecorder(reportPath)
		if err != nil {
			logger.Warn("failed to initialize run recorder", slog.String("error", err.Error()))
			// Continue without run recording
		}
	}
	defer func() {
		if recorder != nil {
			_ = recorder.Close() //nolint:errcheck // cleanup
		}
	}()

	slots := int64(0)
	if verifyFlags.bytes > 0 {
		slots = verifyFlags.bytes / probe.SlotSize
	}
	if recorder != nil {
		if err := recorder.RecordStart(verifyFlags.bytes, slots, verifyFlags.hold, limit, addressSpace); err != nil {
			logger.Warn("failed to record run start", slog.String("error", err.Error()))
		}
	}

	result, err := runProbeChild(context.Background(), logger, enforcer, lim, verifyFlags.bytes, verifyFlags.hold)
	if err != nil {
		if recorder != nil {
			_ = recorder.RecordResult(verifyFlags.bytes, outcomeFailed, -1, "", 0, 0, err.Error()) //nolint:errcheck // run recording
		}
		return err
	}

	if recorder != nil {
		if err := recorder.RecordResult(verifyFlags.bytes, result.outcome, result.exitCode, result.signal, result.peakRSS, result.duration, ""); err != nil {
			logger.Warn("failed to record run result", slog.String("error", err.Error()))
		}
	}

	printVerdict(cmd.OutOrStdout(), lim, result)

	if result.outcome != verifyFlags.expect {
		return fmt.Errorf("expected outcome %q, observed %q", verifyFlags.expect, result.outcome)
	}
	return nil
}

// resolveVerifySettings applies config fallbacks to the verify flags.
func resolveVerifySettings() (limit, addressSpace, reportPath string, timeout time.Duration) {
	limit = verifyFlags.limit
	addressSpace = verifyFlags.addressSpace
	reportPath = verifyFlags.report
	timeout = verifyFlags.timeout

	if cfg != nil {
		if limit == "" {
			limit = cfg.VerifyLimit
		}
		if addressSpace == "" {
			addressSpace = cfg.VerifyAddressSpace
		}
		if reportPath == "" {
			reportPath = cfg.ReportFile
		}
		if timeout <= 0 {
			timeout = cfg.VerifyTimeout
		}
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return limit, addressSpace, reportPath, timeout
}

func validOutcome(s string) bool {
	switch s {
	case outcomeCompleted, outcomeRefused, outcomeEnforced, outcomeTimeout:
		return true
	}
	return false
}

// runProbeChild launches this binary as "hold <bytes> <seconds>" under
// the given ceilings and observes its terminal state.
func runProbeChild(ctx context.Context, logger *slog.Logger, enforcer limits.Enforcer, lim *limits.Limits, bytes int64, holdSeconds int) (*probeResult, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate own binary: %w", err)
	}

	logger.Info("starting probe child",
		slog.Int64("bytes", bytes),
		slog.Int("hold_seconds", holdSeconds),
		slog.String("memory_max", lim.MaxMemory),
		slog.String("address_space", lim.MaxAddressSpace),
		slog.Duration("timeout", lim.Timeout),
		slog.String("enforcer", enforcer.Name()),
	)

	// Create context with timeout
	ctx, cancel := context.WithTimeout(ctx, lim.Timeout)
	defer cancel()

	var stdout strings.Builder
	child := exec.CommandContext(ctx, exe, "hold", strconv.FormatInt(bytes, 10), strconv.Itoa(holdSeconds))
	child.Stdout = &stdout
	child.Stderr = os.Stderr

	if err := enforcer.Apply(child, lim); err != nil {
		return nil, fmt.Errorf("failed to prepare limits: %w", err)
	}

	start := time.Now()
	if err := child.Start(); err != nil {
		return nil, fmt.Errorf("failed to start probe child: %w", err)
	}
	pid := child.Process.Pid
	logger.Debug("probe child started", slog.Int("pid", pid))

	defer func() {
		if err := enforcer.Cleanup(pid); err != nil {
			logger.Warn("failed to clean up limits", slog.String("error", err.Error()))
		}
	}()

	if err := enforcer.PostStart(pid, lim); err != nil {
		_ = child.Process.Kill()  //nolint:errcheck // abandoning the child
		_ = child.Wait()          //nolint:errcheck // reap before returning
		return nil, fmt.Errorf("failed to apply limits: %w", err)
	}

	// Sample the child's resident set while it runs. The peak is
	// approximate: a short-lived spike between ticks can be missed.
	done := make(chan struct{})
	var peak atomic.Uint64
	go func() {
		ticker := time.NewTicker(25 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				rss, err := meminfo.ProcessRSS(int32(pid))
				if err != nil {
					continue
				}
				if rss > peak.Load() {
					peak.Store(rss)
				}
			}
		}
	}()

	waitErr := child.Wait()
	close(done)
	duration := time.Since(start)

	result := &probeResult{
		exitCode:    -1,
		peakRSS:     peak.Load(),
		duration:    duration,
		childStdout: stdout.String(),
	}
	if child.ProcessState != nil {
		result.exitCode = child.ProcessState.ExitCode()
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if name, ok := terminationSignal(exitErr); ok {
			result.signal = name
		}
	}

	timedOut := ctx.Err() == context.DeadlineExceeded
	result.outcome = classifyOutcome(timedOut, result.exitCode, result.signal, result.childStdout)

	logger.Info("probe child finished",
		slog.String("outcome", result.outcome),
		slog.Int("exit_code", result.exitCode),
		slog.String("signal", result.signal),
		slog.Uint64("peak_rss", result.peakRSS),
		slog.Duration("duration", result.duration),
	)

	return result, nil
}

// classifyOutcome maps the child's terminal state to an outcome. Death
// by signal means a ceiling was enforced mid-run: the kernel's OOM
// killer sends SIGKILL, and a fault while filling pages that were
// reserved but cannot be committed raises SIGSEGV or SIGBUS. An exit
// status of 1 with the failure verdict on stdout means the reservation
// itself was refused.
func classifyOutcome(timedOut bool, exitCode int, signal string, childStdout string) string {
	switch {
	case timedOut:
		return outcomeTimeout
	case signal != "":
		return outcomeEnforced
	case exitCode == 0:
		return outcomeCompleted
	case exitCode == 1 && strings.Contains(childStdout, "Memory not allocated."):
		return outcomeRefused
	default:
		return outcomeFailed
	}
}

func printVerdict(w io.Writer, lim *limits.Limits, result *probeResult) {
	fmt.Fprintf(w, "Probe Verification\n")
	fmt.Fprintf(w, "==================\n\n")

	fmt.Fprintf(w, "Request:\n")
	fmt.Fprintf(w, "  Bytes:          %d (%s)\n", verifyFlags.bytes, formatBytes(verifyFlags.bytes))
	fmt.Fprintf(w, "  Hold:           %ds\n", verifyFlags.hold)
	if lim.MaxMemory != "" {
		fmt.Fprintf(w, "  Memory ceiling: %s\n", lim.MaxMemory)
	}
	if lim.MaxAddressSpace != "" {
		fmt.Fprintf(w, "  Address space:  %s\n", lim.MaxAddressSpace)
	}
	fmt.Fprintf(w, "  Deadline:       %s\n", lim.Timeout)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Observed:\n")
	fmt.Fprintf(w, "  Exit code: %d\n", result.exitCode)
	if result.signal != "" {
		fmt.Fprintf(w, "  Signal:    %s\n", result.signal)
	}
	if result.peakRSS > 0 {
		fmt.Fprintf(w, "  Peak RSS:  %s\n", formatBytes(int64(result.peakRSS)))
	}
	fmt.Fprintf(w, "  Duration:  %s\n", result.duration.Round(time.Millisecond))
	fmt.Fprintln(w)

	if result.childStdout != "" {
		fmt.Fprintf(w, "Child Output:\n")
		for _, line := range strings.Split(strings.TrimRight(result.childStdout, "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Outcome: %s (expected %s)\n", result.outcome, verifyFlags.expect)
}

// formatBytes formats a byte count in human-readable form
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB", "TB"}
	if exp < len(units) {
		return fmt.Sprintf("%.2f %s", float64(bytes)/float64(div), units[exp])
	}
	return fmt.Sprintf("%d B", bytes)
}
