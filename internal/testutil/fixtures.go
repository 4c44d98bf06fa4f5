// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/electrooms/internal/domain"
	"github.com/roach88/electrooms/internal/store"
)

// ElectionStart is the start time of seeded elections.
var ElectionStart = time.Date(2026, 3, 7, 13, 0, 0, 0, time.UTC)

// NewStore opens a fresh SQLite store under t.TempDir and closes it on cleanup.
func NewStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "electrooms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// SeedElection creates an election with its preelection room, upserts the
// participants and places them in the preelection room.
func SeedElection(t *testing.T, s *store.Store, participants []domain.Participant) (domain.Election, domain.Room) {
	t.Helper()
	ctx := context.Background()

	e, err := s.CreateElection(ctx, ElectionStart, "test election")
	require.NoError(t, err)
	pre, err := s.EnsurePreelectionRoom(ctx, e.ID)
	require.NoError(t, err)

	accounts := make([]string, 0, len(participants))
	for _, p := range participants {
		require.NoError(t, s.UpsertParticipant(ctx, p))
		accounts = append(accounts, p.AccountName)
	}
	require.NoError(t, s.AddToPreelection(ctx, pre, accounts))
	return e, pre
}

// Participants returns n participants named member00, member01, ... with
// handles @member00_tg, ...; every participant whose position is in
// withoutHandle has no handle.
func Participants(n int, withoutHandle ...int) []domain.Participant {
	skip := make(map[int]bool, len(withoutHandle))
	for _, i := range withoutHandle {
		skip[i] = true
	}
	out := make([]domain.Participant, n)
	for i := range out {
		account := AccountName(i)
		out[i] = domain.Participant{AccountName: account, ParticipantName: "Member " + account[len(account)-2:]}
		if !skip[i] {
			out[i].TelegramID = "@" + account + "_tg"
		}
	}
	return out
}

// AccountName is the account name Participants gives to position i.
func AccountName(i int) string {
	return fmt.Sprintf("member%02d", i)
}
