package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scenesync/internal/sample"
	"github.com/roach88/scenesync/internal/syncloop"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "scenesync", cmd.Use)
	assert.Equal(t, Version, cmd.Version)
	assert.Contains(t, cmd.Long, "sync server")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"publish", "serve", "config", "inspect", "test"}

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
}

func TestPublishCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	publishCmd, _, err := cmd.Find([]string{"publish"})
	require.NoError(t, err)

	defaults := map[string]string{
		"sync":        "false",
		"settings":    DefaultSettingsFile,
		"rules":       DefaultRulesFile,
		"source-id":   DefaultSourceID,
		"interval":    syncloop.DefaultInterval.String(),
		"watch":       "",
		"log-file":    "",
		"source-name": sample.SourceName,
	}
	for name, want := range defaults {
		flag := publishCmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, want, flag.DefValue, name)
	}
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	dbFlag := serveCmd.Flags().Lookup("db")
	require.NotNil(t, dbFlag)
	// --db is required, so default is empty
	assert.Equal(t, "", dbFlag.DefValue)

	addrFlag := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, addrFlag)
	assert.Equal(t, DefaultAddress, addrFlag.DefValue)
}

func TestConfigCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	configCmd, _, err := cmd.Find([]string{"config"})
	require.NoError(t, err)

	for _, name := range []string{"user", "project", "project-id", "server", "address", "rules"} {
		require.NotNil(t, configCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "meters", configCmd.Flags().Lookup("unit").DefValue)
	assert.Equal(t, "none", configCmd.Flags().Lookup("axis").DefValue)
}

func TestInspectCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	inspectCmd, _, err := cmd.Find([]string{"inspect"})
	require.NoError(t, err)

	require.NotNil(t, inspectCmd.Flags().Lookup("db"))
	require.NotNil(t, inspectCmd.Flags().Lookup("project"))
	require.NotNil(t, inspectCmd.Flags().Lookup("source"))
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	require.NotNil(t, testCmd.Flags().Lookup("filter"))
	require.NotNil(t, testCmd.Flags().Lookup("golden"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "invalid", "test", t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestVersionFlag(t *testing.T) {
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), Version)
}
