package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/electrooms/internal/domain"
)

// DelegateParticipantsToRoom moves participants out of the preelection room
// into the room named by each participant's RoomID.
//
// Runs in one transaction. Safe to call repeatedly: memberships are upserted,
// and a participant already in its room is left there with its index and vote
// refreshed. A participant previously placed in a different room of the same
// round is moved.
func (s *Store) DelegateParticipantsToRoom(ctx context.Context, participants []domain.ExtendedParticipant, preelection domain.Room) error {
	if !preelection.IsPreelection() {
		return fmt.Errorf("delegate participants: room %d is not a preelection room", preelection.ID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delegate participants: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	rounds := make(map[int64]int)
	for _, p := range participants {
		if p.RoomID == 0 {
			return fmt.Errorf("delegate participants: %q has no room", p.AccountName)
		}

		round, ok := rounds[p.RoomID]
		if !ok {
			err := tx.QueryRowContext(ctx, `
				SELECT round FROM rooms WHERE id = ? AND election_id = ?
			`, p.RoomID, preelection.ElectionID).Scan(&round)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("delegate participants: room %d not in election %d", p.RoomID, preelection.ElectionID)
			}
			if err != nil {
				return fmt.Errorf("delegate participants: room %d: %w", p.RoomID, err)
			}
			rounds[p.RoomID] = round
		}

		_, err := tx.ExecContext(ctx, `
			DELETE FROM room_members
			WHERE account_name = ?
			  AND room_id != ?
			  AND room_id IN (
				SELECT id FROM rooms
				WHERE election_id = ? AND (round = ? OR id = ?)
			  )
		`, p.AccountName, p.RoomID, preelection.ElectionID, round, preelection.ID)
		if err != nil {
			return fmt.Errorf("delegate participants: remove %q: %w", p.AccountName, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO room_members (room_id, account_name, participant_index, vote_for)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(room_id, account_name) DO UPDATE SET
				participant_index = excluded.participant_index,
				vote_for = excluded.vote_for
		`, p.RoomID, p.AccountName, p.Index, p.VoteFor)
		if err != nil {
			return fmt.Errorf("delegate participants: add %q: %w", p.AccountName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delegate participants: commit: %w", err)
	}
	return nil
}

// AddToPreelection places accounts in the election's preelection room.
// Accounts already there are left untouched.
func (s *Store) AddToPreelection(ctx context.Context, preelection domain.Room, accounts []string) error {
	if !preelection.IsPreelection() {
		return fmt.Errorf("add to preelection: room %d is not a preelection room", preelection.ID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("add to preelection: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, account := range accounts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO room_members (room_id, account_name)
			VALUES (?, ?)
			ON CONFLICT(room_id, account_name) DO NOTHING
		`, preelection.ID, account)
		if err != nil {
			return fmt.Errorf("add to preelection: %q: %w", account, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("add to preelection: commit: %w", err)
	}
	return nil
}

// RoomMembers returns the members of a room ordered by ledger index, then
// account name. Members unknown to the participants table carry only their
// account name.
func (s *Store) RoomMembers(ctx context.Context, roomID int64) ([]domain.ExtendedParticipant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.account_name, COALESCE(p.participant_name, ''), p.telegram_id,
		       m.participant_index, m.vote_for, m.room_id
		FROM room_members m
		LEFT JOIN participants p ON p.account_name = m.account_name
		WHERE m.room_id = ?
		ORDER BY m.participant_index ASC, m.account_name COLLATE BINARY ASC
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("query room members: %w", err)
	}
	defer rows.Close()

	members := []domain.ExtendedParticipant{}
	for rows.Next() {
		var m domain.ExtendedParticipant
		var telegramID sql.NullString
		if err := rows.Scan(
			&m.AccountName, &m.ParticipantName, &telegramID,
			&m.Index, &m.VoteFor, &m.RoomID,
		); err != nil {
			return nil, fmt.Errorf("scan room member: %w", err)
		}
		m.TelegramID = telegramID.String
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room members: %w", err)
	}

	return members, nil
}
