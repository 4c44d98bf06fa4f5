package provision

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/electrooms/internal/domain"
	"github.com/roach88/electrooms/internal/ledger"
	"github.com/roach88/electrooms/internal/messenger"
	"github.com/roach88/electrooms/internal/participants"
	"github.com/roach88/electrooms/internal/store"
	"github.com/roach88/electrooms/internal/testutil"
)

type staticLedger struct {
	rows []ledger.Row
	err  error
}

func (l *staticLedger) Participants(ctx context.Context, height *int64) ([]ledger.Row, error) {
	return l.rows, l.err
}

// roundRows returns ledger rows for participants 0..n-1 in round, with
// index equal to position.
func roundRows(n, round int) []ledger.Row {
	rows := make([]ledger.Row, n)
	for i := range rows {
		rows[i] = ledger.Row{
			Account: testutil.AccountName(i),
			Data:    ledger.ParticipantRow{Round: round, Index: i},
		}
	}
	return rows
}

type fixture struct {
	store    *store.Store
	election domain.Election
	pre      domain.Room
	ledger   *staticLedger
	rec      *messenger.Recorder
	metrics  *Metrics
	cfg      Config
}

func testConfig() Config {
	return Config{
		Season:           5,
		Year:             2026,
		Mode:             ModeLive,
		AgentHandle:      "@eden_bot",
		OperatorHandles:  []string{"@operator1"},
		OrientationPhoto: "orientation.png",
	}
}

// newFixture seeds an election with n participants in round 0. Positions
// in withoutHandle have no chat handle.
func newFixture(t *testing.T, n int, withoutHandle ...int) *fixture {
	t.Helper()
	s := testutil.NewStore(t)
	e, pre := testutil.SeedElection(t, s, testutil.Participants(n, withoutHandle...))
	return &fixture{
		store:    s,
		election: e,
		pre:      pre,
		ledger:   &staticLedger{rows: roundRows(n, 0)},
		rec:      messenger.NewRecorder(),
		metrics:  NewMetrics(),
		cfg:      testConfig(),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (f *fixture) orchestrator(t *testing.T, m messenger.Messenger) *Orchestrator {
	t.Helper()
	if m == nil {
		m = f.rec
	}
	src := participants.NewSource(f.ledger, f.store, participants.WithLogger(discardLogger()))
	o, err := New(f.store, src, m, f.cfg,
		WithLogger(discardLogger()),
		WithMetrics(f.metrics),
	)
	require.NoError(t, err)
	return o
}

func (f *fixture) manage(t *testing.T, req Request) (*Report, error) {
	t.Helper()
	return f.orchestrator(t, nil).Manage(context.Background(), req)
}

func (f *fixture) rooms(t *testing.T, round int) []domain.Room {
	t.Helper()
	rooms, err := f.store.RoomsForRound(context.Background(), f.election.ID, round)
	require.NoError(t, err)
	return rooms
}

func (f *fixture) members(t *testing.T, roomID int64) []string {
	t.Helper()
	ms, err := f.store.RoomMembers(context.Background(), roomID)
	require.NoError(t, err)
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.AccountName
	}
	return out
}

// failNthCreate fails the nth CreateGroupChat call (1-based).
type failNthCreate struct {
	messenger.Messenger
	n     int
	calls int
	err   error
}

func (f *failNthCreate) CreateGroupChat(ctx context.Context, name, description string) (domain.ChatID, error) {
	f.calls++
	if f.calls == f.n {
		return 0, f.err
	}
	return f.Messenger.CreateGroupChat(ctx, name, description)
}
