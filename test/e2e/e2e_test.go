//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	probeBinary = "../../memprobe"
)

// TestMain ensures the probe binary is built before running tests
func TestMain(m *testing.M) {
	if _, err := os.Stat(probeBinary); os.IsNotExist(err) {
		fmt.Println("Building memprobe binary...")
		cmd := exec.Command("make", "build")
		cmd.Dir = "../.."
		if err := cmd.Run(); err != nil {
			fmt.Printf("Failed to build memprobe: %v\n", err)
			os.Exit(1)
		}
	}

	code := m.Run()
	os.Exit(code)
}

// Helper to run the probe binary
func runProbe(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	cmd := exec.Command(probeBinary, args...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	stdout = outBuf.String()
	stderr = errBuf.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = 1
		}
	} else {
		exitCode = 0
	}

	return stdout, stderr, exitCode
}

func TestE2E_ProbeRun(t *testing.T) {
	stdout, _, exitCode := runProbe(t, "800", "1")

	assert.Equal(t, 0, exitCode)
	assert.Equal(t, "Memory to be allocated: 800\nMemory successfully allocated.\nMemory successfully freed.\n", stdout)
}

func TestE2E_ProbeRun_FullSize(t *testing.T) {
	// The default-sized request, passed explicitly so the hold can be
	// short.
	stdout, _, exitCode := runProbe(t, "100000000", "1")

	assert.Equal(t, 0, exitCode)
	assert.Equal(t, "Memory to be allocated: 100000000\nMemory successfully allocated.\nMemory successfully freed.\n", stdout)
}

func TestE2E_ProbeRun_Defaults(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 30 second default hold in short mode")
	}

	stdout, _, exitCode := runProbe(t)

	assert.Equal(t, 0, exitCode)
	assert.Equal(t, "Memory to be allocated: 100000000\nMemory successfully allocated.\nMemory successfully freed.\n", stdout)
}

func TestE2E_ProbeRun_GarbageSize(t *testing.T) {
	stdout, _, exitCode := runProbe(t, "junk", "1")

	assert.Equal(t, 0, exitCode)
	assert.Equal(t, "Memory to be allocated: 0\nMemory successfully allocated.\nMemory successfully freed.\n", stdout)
}

func TestE2E_ProbeRun_NegativeSize(t *testing.T) {
	stdout, _, exitCode := runProbe(t, "--", "-5", "1")

	assert.Equal(t, 1, exitCode)
	assert.Equal(t, "Memory to be allocated: -5\nMemory not allocated.\n", stdout)
}

func TestE2E_TooManyArguments(t *testing.T) {
	stdout, _, exitCode := runProbe(t, "1", "2", "3")

	assert.Equal(t, 1, exitCode)
	assert.Equal(t, "Only two arguments (memory size and sleep time) are supported\n", stdout)
	assert.NotContains(t, stdout, "Memory to be allocated")
}

func TestE2E_Alloc_TooManyArguments(t *testing.T) {
	stdout, _, exitCode := runProbe(t, "alloc", "1", "2")

	assert.Equal(t, 1, exitCode)
	assert.Equal(t, "Only one argument (memory size) is supported\n", stdout)
	assert.NotContains(t, stdout, "Memory to be allocated")
}

func TestE2E_Hold_TooManyArguments(t *testing.T) {
	stdout, _, exitCode := runProbe(t, "hold", "1", "2", "3")

	assert.Equal(t, 1, exitCode)
	assert.Equal(t, "Only two arguments (memory size and sleep time) are supported\n", stdout)
}

func TestE2E_Verify_Completed(t *testing.T) {
	stdout, _, exitCode := runProbe(t, "verify", "--bytes", "800", "--hold", "0", "--expect", "completed")

	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout, "Probe Verification")
	assert.Contains(t, stdout, "Outcome: completed (expected completed)")
	assert.Contains(t, stdout, "Memory successfully freed.")
}

func TestE2E_Verify_ExpectMismatch(t *testing.T) {
	// A tiny request completes, which is not what the expectation
	// asks for.
	stdout, _, exitCode := runProbe(t, "verify", "--bytes", "800", "--hold", "0", "--expect", "enforced")

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stdout, "Outcome: completed (expected enforced)")
}

func TestE2E_Verify_Refused(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("address space enforcement requires linux")
	}

	// An 8 GB request under a 3 GB address space cap is refused at
	// reservation time. The cap leaves the runtime itself enough room
	// to start.
	stdout, _, exitCode := runProbe(t, "verify",
		"--bytes", "8000000000",
		"--address-space", "3G",
		"--hold", "0",
		"--expect", "refused",
	)

	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout, "Outcome: refused (expected refused)")
	assert.Contains(t, stdout, "Memory not allocated.")
}

func TestE2E_Verify_Timeout(t *testing.T) {
	stdout, _, exitCode := runProbe(t, "verify",
		"--bytes", "1000",
		"--hold", "10",
		"--timeout", "1s",
		"--expect", "timeout",
	)

	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout, "Outcome: timeout (expected timeout)")
}

func TestE2E_Verify_InvalidExpectation(t *testing.T) {
	_, _, exitCode := runProbe(t, "verify", "--expect", "oom")

	assert.Equal(t, 1, exitCode)
}

func TestE2E_Doctor(t *testing.T) {
	stdout, stderr, exitCode := runProbe(t, "doctor")

	assert.Equal(t, 0, exitCode, "memprobe doctor should succeed")
	assert.Contains(t, stdout, "Memory Probe Diagnostics")
	assert.Contains(t, stdout, "System Information")
	assert.Empty(t, stderr)
}

func TestE2E_DoctorJSON(t *testing.T) {
	stdout, stderr, exitCode := runProbe(t, "doctor", "--json")

	assert.Equal(t, 0, exitCode)
	assert.Empty(t, stderr)

	// Parse JSON output
	var result map[string]interface{}
	err := json.Unmarshal([]byte(stdout), &result)
	require.NoError(t, err)

	assert.Contains(t, result, "OS")
	assert.Contains(t, result, "Arch")
	assert.Contains(t, result, "OversizedOutcome")
}

func TestE2E_Version(t *testing.T) {
	stdout, _, exitCode := runProbe(t, "--version")

	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout, "memprobe version")
}

func TestE2E_Help(t *testing.T) {
	stdout, _, exitCode := runProbe(t, "--help")

	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout, "Available Commands")
	assert.Contains(t, stdout, "alloc")
	assert.Contains(t, stdout, "hold")
	assert.Contains(t, stdout, "verify")
	assert.Contains(t, stdout, "doctor")
}

// Benchmark E2E commands
func BenchmarkE2E_ProbeRun(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cmd := exec.Command(probeBinary, "1000", "0")
		_ = cmd.Run()
	}
}
