// Package participants turns ledger rows into the ordered participant list
// of one round.
package participants

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/electrooms/internal/domain"
	"github.com/roach88/electrooms/internal/ledger"
)

// ErrSourceUnavailable wraps a failed ledger read.
var ErrSourceUnavailable = errors.New("participant source unavailable")

// Ledger is the read-only chain view.
type Ledger interface {
	Participants(ctx context.Context, height *int64) ([]ledger.Row, error)
}

// Directory looks up locally known participants.
type Directory interface {
	GetParticipant(ctx context.Context, accountName string) (domain.Participant, bool, error)
}

// Skip reasons reported to the OnSkip hook.
const (
	SkipMalformedRow = "malformed_row"
	SkipOtherRound   = "other_round"
)

// Source combines the ledger and the local directory.
type Source struct {
	ledger    Ledger
	directory Directory
	logger    *slog.Logger
	onSkip    func(reason string)
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) {
		s.logger = l
	}
}

// WithSkipHook is called once per dropped ledger row with its reason.
func WithSkipHook(fn func(reason string)) Option {
	return func(s *Source) {
		s.onSkip = fn
	}
}

// NewSource creates a Source.
func NewSource(l Ledger, d Directory, opts ...Option) *Source {
	s := &Source{
		ledger:    l,
		directory: d,
		logger:    slog.Default(),
		onSkip:    func(string) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchParticipants returns the participants of round ordered by ledger index,
// then account name. With isLastRound every valid row is kept whatever its
// round.
//
// Malformed rows are logged and skipped, so the result may be shorter than
// the ledger's participant count. Accounts unknown to the directory are kept
// with only their account name.
func (s *Source) FetchParticipants(ctx context.Context, round int, isLastRound bool, height *int64) ([]domain.ExtendedParticipant, error) {
	rows, err := s.ledger.Participants(ctx, height)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	out := make([]domain.ExtendedParticipant, 0, len(rows))
	for _, row := range rows {
		if !row.OK() {
			s.logger.Warn("skipping ledger row", "account", row.Account, "error", row.Err)
			s.onSkip(SkipMalformedRow)
			continue
		}
		if row.Data.Round != round && !isLastRound {
			s.onSkip(SkipOtherRound)
			continue
		}
		out = append(out, domain.ExtendedParticipant{
			Participant: s.lookup(ctx, row.Account),
			Index:       row.Data.Index,
			VoteFor:     row.Data.Candidate,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return out[i].AccountName < out[j].AccountName
	})

	s.logger.Debug("fetched participants",
		"round", round,
		"last_round", isLastRound,
		"rows", len(rows),
		"kept", len(out))
	return out, nil
}

func (s *Source) lookup(ctx context.Context, account string) domain.Participant {
	p, found, err := s.directory.GetParticipant(ctx, account)
	switch {
	case err != nil:
		s.logger.Warn("participant lookup failed", "account", account, "error", err)
	case !found:
		s.logger.Warn("participant unknown to store", "account", account)
	default:
		p.AccountName = account
		return p
	}
	return domain.Participant{AccountName: account}
}
