package cli

import (
	"fmt"

	"github.com/clusterprobe/memprobe/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"

	// Global flags
	verbose    bool
	jsonOutput bool

	// Global config
	cfg *config.Config
)

// rootCmd represents the base command. The root itself is the
// two-argument probe so that the binary can stand in for the original
// tool in existing job scripts without a subcommand. Usage and error
// chatter is silenced: external harnesses read the probe's stdout
// lines and exit status, nothing else.
var rootCmd = &cobra.Command{
	Use:   "memprobe [bytes] [hold_seconds]",
	Short: "Memory allocation probe for scheduler testing",
	Long: `memprobe allocates a requested amount of memory, commits it by writing
into every eight-byte slot, holds it, and releases it. Schedulers and
resource controllers under test observe the console lines and the exit
status from outside, so both are kept stable.`,
	Version:       Version,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load configuration
		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Override config with flags if provided
		if verbose {
			cfg.LogLevel = "debug"
		}

		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	// Version template
	rootCmd.SetVersionTemplate(fmt.Sprintf("memprobe version %s\ncommit: %s\nbuilt: %s\n", Version, GitCommit, BuildDate))

	// Add subcommands
	rootCmd.AddCommand(allocCmd)
	rootCmd.AddCommand(holdCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(doctorCmd)
}

// allocCmd probes with the fixed default hold
var allocCmd = &cobra.Command{
	Use:   "alloc [bytes]",
	Short: "Allocate memory and hold it for the default 30 seconds",
	Long: `Allocate the given number of bytes (default 100000000), commit them,
hold for 30 seconds, and release.
Example: memprobe alloc 800000000`,
	Args: cobra.ArbitraryArgs,
}

// holdCmd probes with an explicit hold duration
var holdCmd = &cobra.Command{
	Use:   "hold [bytes] [hold_seconds]",
	Short: "Allocate memory and hold it for a given number of seconds",
	Long: `Allocate the given number of bytes (default 100000000), commit them,
hold for the given number of seconds (default 30), and release.
Example: memprobe hold 800000000 5`,
	Args: cobra.ArbitraryArgs,
}

// verifyCmd runs the probe as a child under a memory ceiling
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run the probe under a memory ceiling and classify the outcome",
	Long: `Run the probe as a child process under a memory ceiling and classify
its terminal outcome (completed, refused, enforced, timeout).
Example: memprobe verify --limit 32M --bytes 256000000 --hold 2`,
	Args: cobra.NoArgs,
}

// doctorCmd diagnoses the allocation environment
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the allocation environment",
	Long:  `Diagnose the allocation environment (memory totals, overcommit policy, cgroups, enforcement capabilities).`,
}
