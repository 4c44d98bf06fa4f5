package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/electrooms/internal/testutil"
)

// cliEnv is a temporary deployment: config, database and input files.
type cliEnv struct {
	dir      string
	config   string
	database string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	env := &cliEnv{
		dir:      dir,
		config:   filepath.Join(dir, "electrooms.yaml"),
		database: filepath.Join(dir, "electrooms.db"),
	}
	cfg := fmt.Sprintf(`database: %s
season: 5
year: 2026
mode: live
agent_handle: "@eden_bot"
operator_handles: ["@operator1"]
language: en
`, env.database)
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0644))
	return env
}

// writeParticipants writes a participants file with n members named like
// testutil.Participants.
func (e *cliEnv) writeParticipants(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	for _, p := range testutil.Participants(n) {
		fmt.Fprintf(&b, "- account: %s\n  name: %s\n  telegram: %q\n", p.AccountName, p.ParticipantName, p.TelegramID)
	}
	path := filepath.Join(e.dir, "participants.yaml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

// writeLedger writes a snapshot placing the first n members in round at
// indexes 0..n-1.
func (e *cliEnv) writeLedger(t *testing.T, round, n int) string {
	t.Helper()
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%s: {round: %d, index: %d}\n", testutil.AccountName(i), round, i)
	}
	path := filepath.Join(e.dir, "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

// execute runs the root command with --config prepended and returns stdout.
// Logs go to a separate buffer.
func (e *cliEnv) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// seed registers n participants in a new election.
func (e *cliEnv) seed(t *testing.T, n int) {
	t.Helper()
	_, err := e.execute(t, "seed",
		"--participants-file", e.writeParticipants(t, n),
		"--starts-at", "2026-03-07T13:00:00Z")
	require.NoError(t, err)
}
