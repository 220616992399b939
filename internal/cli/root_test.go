package cli

import (
	"bytes"
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ruledeploy/internal/deploy"
	"github.com/roach88/ruledeploy/internal/testutil"
)

const testSource = "/dist/.cursor/rules"

// newTestRoot builds a root command over fs whose resolver only knows
// /dist (through the engine directory /dist/bin).
func newTestRoot(fs billy.Filesystem, args ...string) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	opts := &RootOptions{
		FS:     fs,
		Locate: func() deploy.Locations { return deploy.Locations{EngineDir: "/dist/bin"} },
		RunIDs: testutil.NewFixedRunID("run-cli"),
	}
	cmd := NewRootCommandWithOptions(opts)
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	return cmd, stdout, stderr
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "ruledeploy [target]", cmd.Use)
	assert.Contains(t, cmd.Long, "~/.universal-rules/.cursor/rules")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"watch", "sources", "status"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "source"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, "", flag.DefValue)
	}
}

func TestInstallFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"dry-run", "no-gitignore"} {
		flag := cmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, "false", flag.DefValue)
	}
}

func TestWatchCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	watchCmd, _, err := cmd.Find([]string{"watch"})
	require.NoError(t, err)

	debounceFlag := watchCmd.Flags().Lookup("debounce")
	require.NotNil(t, debounceFlag)
	assert.Equal(t, "0s", debounceFlag.DefValue)
	assert.Nil(t, watchCmd.Flags().Lookup("dry-run"))
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"invalid format", []string{"--format", "yaml", "/proj"}},
		{"too many args", []string{"/a", "/b"}},
		{"unknown flag", []string{"--force", "/proj"}},
		{"status too many args", []string{"status", "/a", "/b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := memfs.New()
			cmd, stdout, _ := newTestRoot(fs, tt.args...)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.False(t, isReported(err))
			assert.Empty(t, stdout.String())
		})
	}
}
