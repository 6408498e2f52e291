//go:build unix

package cli

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// terminationSignal reports the signal that terminated the child, if
// any. SIGKILL here usually means the kernel OOM killer fired.
func terminationSignal(err *exec.ExitError) (string, bool) {
	status, ok := err.Sys().(syscall.WaitStatus)
	if !ok || !status.Signaled() {
		return "", false
	}
	return unix.SignalName(status.Signal()), true
}
