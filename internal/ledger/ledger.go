// Package ledger reads the election participant set from the chain.
//
// Every row of a ledger response is a tagged result: either a decoded
// ParticipantRow or the reason it could not be decoded. Consumers branch on
// Row.OK instead of inspecting types.
package ledger

import (
	"context"
	"fmt"
)

// ParticipantRow is one participant's entry for the running election.
type ParticipantRow struct {
	Round     int    `json:"round" yaml:"round"`
	Index     int    `json:"index" yaml:"index"`
	Candidate string `json:"candidate" yaml:"candidate"`
}

// Row is the result for one account: Data when Err is nil.
type Row struct {
	Account string
	Data    ParticipantRow
	Err     error
}

// OK reports whether the row decoded cleanly.
func (r Row) OK() bool {
	return r.Err == nil
}

// Reader returns the participant rows of the running election.
// height pins the read to a block; nil reads the head.
type Reader interface {
	Participants(ctx context.Context, height *int64) ([]Row, error)
}

// RowError describes why a single row was rejected.
type RowError struct {
	Account string
	Reason  string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("ledger row %q: %s", e.Account, e.Reason)
}

func rowError(account, format string, args ...any) Row {
	return Row{Account: account, Err: &RowError{Account: account, Reason: fmt.Sprintf(format, args...)}}
}
