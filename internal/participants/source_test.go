package participants

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/electrooms/internal/domain"
	"github.com/roach88/electrooms/internal/ledger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okRow(account string, round, index int) ledger.Row {
	return ledger.Row{Account: account, Data: ledger.ParticipantRow{Round: round, Index: index, Candidate: "cand-" + account}}
}

func accountsOf(ps []domain.ExtendedParticipant) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.AccountName
	}
	return out
}

func TestFetchParticipants_FiltersByRound(t *testing.T) {
	ctrl := gomock.NewController(t)
	l := NewMockLedger(ctrl)
	d := NewMockDirectory(ctrl)

	l.EXPECT().Participants(gomock.Any(), gomock.Nil()).Return([]ledger.Row{
		okRow("carol", 1, 1),
		okRow("alice", 1, 0),
		okRow("bob", 0, 0),
	}, nil)
	d.EXPECT().GetParticipant(gomock.Any(), "alice").
		Return(domain.Participant{AccountName: "alice", ParticipantName: "Alice", TelegramID: "alice_tg"}, true, nil)
	d.EXPECT().GetParticipant(gomock.Any(), "carol").
		Return(domain.Participant{AccountName: "carol"}, true, nil)

	var skipped []string
	src := NewSource(l, d, WithLogger(discardLogger()), WithSkipHook(func(r string) { skipped = append(skipped, r) }))
	got, err := src.FetchParticipants(context.Background(), 1, false, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "carol"}, accountsOf(got))
	assert.Equal(t, "Alice", got[0].ParticipantName)
	assert.Equal(t, "@alice_tg", got[0].Handle())
	assert.Equal(t, "cand-alice", got[0].VoteFor)
	assert.Equal(t, 1, got[1].Index)
	assert.Equal(t, []string{SkipOtherRound}, skipped)
}

func TestFetchParticipants_LastRoundKeepsEveryone(t *testing.T) {
	ctrl := gomock.NewController(t)
	l := NewMockLedger(ctrl)
	d := NewMockDirectory(ctrl)

	height := int64(99)
	l.EXPECT().Participants(gomock.Any(), &height).Return([]ledger.Row{
		okRow("bob", 2, 0),
		okRow("alice", 3, 0),
		okRow("zed", 1, 4),
	}, nil)
	d.EXPECT().GetParticipant(gomock.Any(), gomock.Any()).Return(domain.Participant{}, false, nil).Times(3)

	got, err := NewSource(l, d, WithLogger(discardLogger())).FetchParticipants(context.Background(), 3, true, &height)
	require.NoError(t, err)

	// Equal indexes fall back to account order.
	assert.Equal(t, []string{"alice", "bob", "zed"}, accountsOf(got))
}

func TestFetchParticipants_SkipsMalformedRows(t *testing.T) {
	ctrl := gomock.NewController(t)
	l := NewMockLedger(ctrl)
	d := NewMockDirectory(ctrl)

	l.EXPECT().Participants(gomock.Any(), gomock.Any()).Return([]ledger.Row{
		okRow("alice", 0, 0),
		{Account: "broken", Err: errors.New("missing index")},
	}, nil)
	d.EXPECT().GetParticipant(gomock.Any(), "alice").Return(domain.Participant{AccountName: "alice"}, true, nil)

	var skipped []string
	got, err := NewSource(l, d,
		WithLogger(discardLogger()),
		WithSkipHook(func(r string) { skipped = append(skipped, r) }),
	).FetchParticipants(context.Background(), 0, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, accountsOf(got))
	assert.Equal(t, []string{SkipMalformedRow}, skipped)
}

func TestFetchParticipants_UnknownOrFailingLookupKeepsParticipant(t *testing.T) {
	ctrl := gomock.NewController(t)
	l := NewMockLedger(ctrl)
	d := NewMockDirectory(ctrl)

	l.EXPECT().Participants(gomock.Any(), gomock.Any()).Return([]ledger.Row{
		okRow("ghost", 0, 0),
		okRow("flaky", 0, 1),
	}, nil)
	d.EXPECT().GetParticipant(gomock.Any(), "ghost").Return(domain.Participant{}, false, nil)
	d.EXPECT().GetParticipant(gomock.Any(), "flaky").Return(domain.Participant{}, false, errors.New("database is locked"))

	got, err := NewSource(l, d, WithLogger(discardLogger())).FetchParticipants(context.Background(), 0, false, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.Participant{AccountName: "ghost"}, got[0].Participant)
	assert.Equal(t, domain.Participant{AccountName: "flaky"}, got[1].Participant)
	assert.Empty(t, got[1].Handle())
}

func TestFetchParticipants_LedgerFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	l := NewMockLedger(ctrl)
	d := NewMockDirectory(ctrl)

	cause := errors.New("connection refused")
	l.EXPECT().Participants(gomock.Any(), gomock.Any()).Return(nil, cause)

	_, err := NewSource(l, d, WithLogger(discardLogger())).FetchParticipants(context.Background(), 0, false, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	assert.True(t, errors.Is(err, cause))
}
