package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/electrooms/internal/domain"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestElection creates an election with its preelection room.
func createTestElection(t *testing.T, s *Store) (domain.Election, domain.Room) {
	t.Helper()
	ctx := context.Background()
	election, err := s.CreateElection(ctx, time.Date(2022, 10, 8, 13, 0, 0, 0, time.UTC), "test")
	require.NoError(t, err)
	pre, err := s.EnsurePreelectionRoom(ctx, election.ID)
	require.NoError(t, err)
	return election, pre
}

// testRooms builds k unsaved rooms for a round.
func testRooms(electionID int64, round, k int) []domain.Room {
	rooms := make([]domain.Room, k)
	for i := range rooms {
		rooms[i] = domain.Room{
			ElectionID: electionID,
			Round:      round,
			Index:      i,
			NameLong:   "long",
			NameShort:  "short",
		}
	}
	return rooms
}

var testStart = time.Date(2022, 10, 8, 13, 0, 0, 0, time.UTC)
