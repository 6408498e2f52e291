package cli

import (
	"fmt"

	"github.com/clusterprobe/memprobe/internal/probe"
	"github.com/spf13/cobra"
)

func init() {
	allocCmd.RunE = runAlloc
}

// runAlloc implements the single-argument probe form. The hold
// duration is fixed at the default.
func runAlloc(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		fmt.Fprintln(cmd.OutOrStdout(), "Only one argument (memory size) is supported")
		return fmt.Errorf("too many arguments")
	}

	bytes := probe.DefaultBytes
	if len(args) == 1 {
		bytes = probe.ParseAmount(args[0])
	}

	p := &probe.Prober{
		Bytes:  bytes,
		Hold:   probe.DefaultHold,
		Out:    cmd.OutOrStdout(),
		Logger: createLogger(activeLogLevel()),
	}
	return p.Run()
}
