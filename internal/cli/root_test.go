package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "electrooms", cmd.Use)
	assert.Contains(t, cmd.Long, "group chat")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"manage", "seed", "status"}

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

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestManageCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	manageCmd, _, err := cmd.Find([]string{"manage"})
	require.NoError(t, err)

	for _, name := range []string{"round", "participants", "groups", "last-round", "height", "db", "dry-run", "ledger-snapshot", "metrics-file"} {
		assert.NotNil(t, manageCmd.Flags().Lookup(name), "flag --%s", name)
	}
	assert.Equal(t, "false", manageCmd.Flags().Lookup("dry-run").DefValue)
}

func TestSeedCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	seedCmd, _, err := cmd.Find([]string{"seed"})
	require.NoError(t, err)

	require.NotNil(t, seedCmd.Flags().Lookup("participants-file"))
	require.NotNil(t, seedCmd.Flags().Lookup("starts-at"))
}

func TestStatusCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	statusCmd, _, err := cmd.Find([]string{"status"})
	require.NoError(t, err)

	roundFlag := statusCmd.Flags().Lookup("round")
	require.NotNil(t, roundFlag)
	assert.Equal(t, "0", roundFlag.DefValue)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "status"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
