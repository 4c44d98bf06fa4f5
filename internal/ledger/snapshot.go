package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Snapshot is a ledger read from a YAML file, used for dry runs and fixtures:
//
//	alice: {round: 0, index: 0, candidate: bob}
//	bob:   {round: 0, index: 1}
//
// The file is read on every call so it can be edited between runs. Heights
// are ignored.
type Snapshot struct {
	path string
}

// NewSnapshot returns a Reader backed by the YAML file at path.
func NewSnapshot(path string) *Snapshot {
	return &Snapshot{path: path}
}

type snapshotEntry struct {
	Round     *int    `yaml:"round"`
	Index     *int    `yaml:"index"`
	Candidate *string `yaml:"candidate"`
}

// Participants implements Reader. Rows are returned sorted by account name.
func (s *Snapshot) Participants(ctx context.Context, height *int64) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("ledger snapshot: %w", err)
	}
	return ParseSnapshot(data)
}

// ParseSnapshot decodes snapshot YAML. A document that is not a mapping is an
// error; an entry that does not decode becomes a row error.
func ParseSnapshot(data []byte) ([]Row, error) {
	var doc map[string]yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("ledger snapshot: parse: %w", err)
	}

	accounts := make([]string, 0, len(doc))
	for account := range doc {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)

	rows := make([]Row, 0, len(accounts))
	for _, account := range accounts {
		node := doc[account]
		var e snapshotEntry
		if err := node.Decode(&e); err != nil {
			rows = append(rows, rowError(account, "decode: %v", err))
			continue
		}
		rows = append(rows, validRow(account, e.Round, e.Index, e.Candidate))
	}
	return rows, nil
}
