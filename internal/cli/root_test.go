package cli

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/clusterprobe/memprobe/internal/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with the given args and returns
// everything written to its output stream.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	// Test that root command exists and has expected properties
	assert.NotNil(t, rootCmd)
	assert.Contains(t, rootCmd.Use, "memprobe")
	assert.Contains(t, rootCmd.Short, "probe")
	assert.True(t, rootCmd.SilenceUsage)
	assert.True(t, rootCmd.SilenceErrors)
}

func TestSubcommands(t *testing.T) {
	// Test that all expected subcommands are registered
	expectedCommands := []string{
		"alloc",
		"hold",
		"verify",
		"doctor",
	}

	commands := rootCmd.Commands()
	commandNames := make([]string, len(commands))
	for i, cmd := range commands {
		commandNames[i] = cmd.Name()
	}

	for _, expected := range expectedCommands {
		assert.Contains(t, commandNames, expected, "Expected command %s to be registered", expected)
	}
}

func TestGlobalFlags(t *testing.T) {
	// Test that global flags are registered
	flags := rootCmd.PersistentFlags()

	assert.NotNil(t, flags.Lookup("verbose"))
	assert.NotNil(t, flags.Lookup("json"))
}

func TestResolveRequest(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantBytes int64
		wantHold  time.Duration
	}{
		{
			name:      "no arguments",
			args:      nil,
			wantBytes: probe.DefaultBytes,
			wantHold:  probe.DefaultHold,
		},
		{
			name:      "size only",
			args:      []string{"800"},
			wantBytes: 800,
			wantHold:  probe.DefaultHold,
		},
		{
			name:      "size and hold",
			args:      []string{"800", "2"},
			wantBytes: 800,
			wantHold:  2 * time.Second,
		},
		{
			name:      "junk size parses as zero",
			args:      []string{"junk"},
			wantBytes: 0,
			wantHold:  probe.DefaultHold,
		},
		{
			name:      "size with trailing garbage",
			args:      []string{"12.9", "1"},
			wantBytes: 12,
			wantHold:  time.Second,
		},
		{
			name:      "junk hold parses as zero",
			args:      []string{"800", "soon"},
			wantBytes: 800,
			wantHold:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotBytes, gotHold := resolveRequest(tt.args)
			assert.Equal(t, tt.wantBytes, gotBytes)
			assert.Equal(t, tt.wantHold, gotHold)
		})
	}
}

func TestRootRun_ProbeSequence(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "explicit size and hold",
			args: []string{"800", "0"},
			want: "Memory to be allocated: 800\nMemory successfully allocated.\nMemory successfully freed.\n",
		},
		{
			name: "hold subcommand",
			args: []string{"hold", "640", "0"},
			want: "Memory to be allocated: 640\nMemory successfully allocated.\nMemory successfully freed.\n",
		},
		{
			name: "junk size parses as zero",
			args: []string{"junk", "0"},
			want: "Memory to be allocated: 0\nMemory successfully allocated.\nMemory successfully freed.\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRootRun_TooManyArguments(t *testing.T) {
	out, err := executeCommand(t, "1", "2", "3")
	require.Error(t, err)
	assert.Equal(t, "Only two arguments (memory size and sleep time) are supported\n", out)
}

func TestHoldRun_TooManyArguments(t *testing.T) {
	out, err := executeCommand(t, "hold", "1", "2", "3")
	require.Error(t, err)
	assert.Equal(t, "Only two arguments (memory size and sleep time) are supported\n", out)
}

func TestAllocRun_TooManyArguments(t *testing.T) {
	out, err := executeCommand(t, "alloc", "1", "2")
	require.Error(t, err)
	assert.Equal(t, "Only one argument (memory size) is supported\n", out)
}

func TestRootRun_NegativeSizeFails(t *testing.T) {
	// A negative size survives parsing but the reservation is refused.
	// The leading "--" keeps the value out of flag parsing.
	out, err := executeCommand(t, "--", "-5", "0")
	require.Error(t, err)
	assert.Equal(t, "Memory to be allocated: -5\nMemory not allocated.\n", out)
}

func TestVersionTemplate(t *testing.T) {
	out, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "memprobe version dev\ncommit: unknown\nbuilt: unknown\n", out)
}
