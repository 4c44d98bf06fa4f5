package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/roach88/electrooms/internal/rpcclient"
)

// MethodParticipants is the JSON-RPC method serving the participant map.
const MethodParticipants = "election.Participants"

// ParticipantsArgs are the parameters of MethodParticipants.
type ParticipantsArgs struct {
	Height *int64 `json:"height,omitempty"`
}

// ParticipantsReply maps account name to the raw participant record.
// Records are kept raw so one malformed entry does not fail the batch.
type ParticipantsReply struct {
	Participants map[string]json.RawMessage `json:"participants"`
}

// Client reads participants from a JSON-RPC ledger endpoint.
type Client struct {
	rpc *rpcclient.Client
}

// NewClient wraps an RPC client bound to the ledger endpoint.
func NewClient(rpc *rpcclient.Client) *Client {
	return &Client{rpc: rpc}
}

// Participants implements Reader. Rows are returned sorted by account name.
func (c *Client) Participants(ctx context.Context, height *int64) ([]Row, error) {
	var reply ParticipantsReply
	if err := c.rpc.Call(ctx, MethodParticipants, ParticipantsArgs{Height: height}, &reply); err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}

	accounts := make([]string, 0, len(reply.Participants))
	for account := range reply.Participants {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)

	rows := make([]Row, 0, len(accounts))
	for _, account := range accounts {
		rows = append(rows, decodeRow(account, reply.Participants[account]))
	}
	return rows, nil
}

// rawRow uses pointers so missing fields can be told apart from zero values.
type rawRow struct {
	Round     *int    `json:"round"`
	Index     *int    `json:"index"`
	Candidate *string `json:"candidate"`
	Error     string  `json:"error"`
}

func decodeRow(account string, raw json.RawMessage) Row {
	if account == "" {
		return rowError(account, "empty account name")
	}
	var r rawRow
	if err := json.Unmarshal(raw, &r); err != nil {
		return rowError(account, "decode: %v", err)
	}
	if r.Error != "" {
		return rowError(account, "%s", r.Error)
	}
	return validRow(account, r.Round, r.Index, r.Candidate)
}

func validRow(account string, round, index *int, candidate *string) Row {
	switch {
	case round == nil:
		return rowError(account, "missing round")
	case index == nil:
		return rowError(account, "missing index")
	case *index < 0:
		return rowError(account, "negative index %d", *index)
	}
	row := ParticipantRow{Round: *round, Index: *index}
	if candidate != nil {
		row.Candidate = *candidate
	}
	return Row{Account: account, Data: row}
}
