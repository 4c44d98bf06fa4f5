package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/electrooms/internal/domain"
)

// CreateElection inserts a new election, which becomes the latest one.
func (s *Store) CreateElection(ctx context.Context, startsAt time.Time, description string) (domain.Election, error) {
	startsAt = startsAt.UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO elections (starts_at, description)
		VALUES (?, ?)
	`, startsAt.Format(time.RFC3339), description)
	if err != nil {
		return domain.Election{}, fmt.Errorf("create election: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.Election{}, fmt.Errorf("create election: last insert id: %w", err)
	}

	return domain.Election{ID: id, StartsAt: startsAt.Truncate(time.Second), Description: description}, nil
}

// LastElection returns the election with the highest ID.
// found is false if no election exists.
func (s *Store) LastElection(ctx context.Context) (election domain.Election, found bool, err error) {
	var startsAt string
	err = s.db.QueryRowContext(ctx, `
		SELECT id, starts_at, description
		FROM elections
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&election.ID, &startsAt, &election.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Election{}, false, nil
	}
	if err != nil {
		return domain.Election{}, false, fmt.Errorf("last election: %w", err)
	}

	election.StartsAt, err = time.Parse(time.RFC3339, startsAt)
	if err != nil {
		return domain.Election{}, false, fmt.Errorf("last election: parse starts_at %q: %w", startsAt, err)
	}

	return election, true, nil
}
