//go:build !unix

package cli

import "os/exec"

// terminationSignal is unavailable off unix: wait status layouts
// differ and the enforcer cannot kill by ceiling here anyway.
func terminationSignal(err *exec.ExitError) (string, bool) {
	return "", false
}
