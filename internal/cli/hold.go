package cli

import (
	"fmt"
	"time"

	"github.com/clusterprobe/memprobe/internal/probe"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.RunE = runHold
	holdCmd.RunE = runHold
}

// runHold implements the two-argument probe form, shared by the root
// command and the hold subcommand.
func runHold(cmd *cobra.Command, args []string) error {
	if len(args) > 2 {
		fmt.Fprintln(cmd.OutOrStdout(), "Only two arguments (memory size and sleep time) are supported")
		return fmt.Errorf("too many arguments")
	}

	bytes, hold := resolveRequest(args)

	p := &probe.Prober{
		Bytes:  bytes,
		Hold:   hold,
		Out:    cmd.OutOrStdout(),
		Logger: createLogger(activeLogLevel()),
	}
	return p.Run()
}

// resolveRequest resolves the positional size and hold arguments,
// falling back to the probe defaults. Parsing is deliberately loose:
// junk yields zero, never an error.
func resolveRequest(args []string) (int64, time.Duration) {
	bytes := probe.DefaultBytes
	hold := probe.DefaultHold

	if len(args) >= 1 {
		bytes = probe.ParseAmount(args[0])
	}
	if len(args) >= 2 {
		hold = time.Duration(probe.ParseAmount(args[1])) * time.Second
	}

	return bytes, hold
}
