package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/electrooms/internal/domain"
)

// preelectionName names the preelection room in both renderings.
const preelectionName = "Preelection"

// rowQueryer is satisfied by *sql.DB and *sql.Tx.
type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateRooms persists rooms and returns them with store-assigned IDs.
//
// All rooms are written in one transaction: either every room gets an ID or
// none does. A room whose (election, round, index) already exists is not
// inserted again; the stored row is returned instead, including its names and
// provisioning marker. This makes allocation safe to re-run after a crash.
func (s *Store) CreateRooms(ctx context.Context, rooms []domain.Room) ([]domain.Room, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create rooms: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	created := make([]domain.Room, 0, len(rooms))
	for _, room := range rooms {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rooms
			(election_id, round, room_index, name_long, name_short)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(election_id, round, room_index) DO NOTHING
		`,
			room.ElectionID,
			room.Round,
			room.Index,
			room.NameLong,
			room.NameShort,
		)
		if err != nil {
			return nil, fmt.Errorf("create rooms: insert index %d: %w", room.Index, err)
		}

		stored, found, err := getRoom(ctx, tx, room.ElectionID, room.Round, room.Index)
		if err != nil {
			return nil, fmt.Errorf("create rooms: %w", err)
		}
		if !found {
			return nil, fmt.Errorf("create rooms: index %d missing after insert", room.Index)
		}
		created = append(created, stored)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create rooms: commit: %w", err)
	}

	return created, nil
}

// GetRoom returns the room at (electionID, round, index).
// found is false if no such room exists.
func (s *Store) GetRoom(ctx context.Context, electionID int64, round, index int) (domain.Room, bool, error) {
	return getRoom(ctx, s.db, electionID, round, index)
}

func getRoom(ctx context.Context, q rowQueryer, electionID int64, round, index int) (domain.Room, bool, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, election_id, round, room_index, name_long, name_short, telegram_id
		FROM rooms
		WHERE election_id = ? AND round = ? AND room_index = ?
	`, electionID, round, index)

	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Room{}, false, nil
	}
	if err != nil {
		return domain.Room{}, false, fmt.Errorf("get room (%d, %d, %d): %w", electionID, round, index, err)
	}
	return room, true, nil
}

// RoomsForRound returns every room of a round ordered by room index.
// Returns an empty slice (not nil) if there are none.
func (s *Store) RoomsForRound(ctx context.Context, electionID int64, round int) ([]domain.Room, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, election_id, round, room_index, name_long, name_short, telegram_id
		FROM rooms
		WHERE election_id = ? AND round = ?
		ORDER BY room_index ASC
	`, electionID, round)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	rooms := []domain.Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}

	return rooms, nil
}

// ElectionGroupsCreated reports whether every room index in [0, numRooms)
// of the round has a provisioned chat.
//
// Room records alone do not count: a run that crashed after allocation but
// before (or during) chat provisioning must be resumed, not skipped.
func (s *Store) ElectionGroupsCreated(ctx context.Context, electionID int64, round, numRooms int) (bool, error) {
	var provisioned int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM rooms
		WHERE election_id = ? AND round = ?
		  AND room_index >= 0 AND room_index < ?
		  AND telegram_id IS NOT NULL
	`, electionID, round, numRooms).Scan(&provisioned)
	if err != nil {
		return false, fmt.Errorf("check groups created: %w", err)
	}
	return provisioned == numRooms, nil
}

// UpdateRoomTelegramID writes the room's provisioning marker.
//
// The marker is set once: writing the same value again is a no-op, writing a
// different value over an existing one is an error.
func (s *Store) UpdateRoomTelegramID(ctx context.Context, room domain.Room) error {
	if room.TelegramID == 0 {
		return fmt.Errorf("update room %d telegram id: empty chat id", room.ID)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE rooms SET telegram_id = ?
		WHERE id = ? AND (telegram_id IS NULL OR telegram_id = ?)
	`, int64(room.TelegramID), room.ID, int64(room.TelegramID))
	if err != nil {
		return fmt.Errorf("update room %d telegram id: %w", room.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update room %d telegram id: rows affected: %w", room.ID, err)
	}
	if affected > 0 {
		return nil
	}

	var existing sql.NullInt64
	err = s.db.QueryRowContext(ctx, `SELECT telegram_id FROM rooms WHERE id = ?`, room.ID).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update room %d telegram id: room not found", room.ID)
	}
	if err != nil {
		return fmt.Errorf("update room %d telegram id: %w", room.ID, err)
	}
	return fmt.Errorf("update room %d telegram id: already set to %d", room.ID, existing.Int64)
}

// EnsurePreelectionRoom returns the election's preelection room, creating it
// if needed.
func (s *Store) EnsurePreelectionRoom(ctx context.Context, electionID int64) (domain.Room, error) {
	rooms, err := s.CreateRooms(ctx, []domain.Room{{
		ElectionID: electionID,
		Round:      domain.PreelectionRound,
		Index:      0,
		NameLong:   preelectionName,
		NameShort:  preelectionName,
	}})
	if err != nil {
		return domain.Room{}, fmt.Errorf("ensure preelection room: %w", err)
	}
	return rooms[0], nil
}

// GetRoomPreelection returns the election's preelection room.
// found is false if the election has none.
func (s *Store) GetRoomPreelection(ctx context.Context, electionID int64) (domain.Room, bool, error) {
	return s.GetRoom(ctx, electionID, domain.PreelectionRound, 0)
}

func scanRoom(row interface{ Scan(...any) error }) (domain.Room, error) {
	var room domain.Room
	var telegramID sql.NullInt64
	if err := row.Scan(
		&room.ID, &room.ElectionID, &room.Round, &room.Index,
		&room.NameLong, &room.NameShort, &telegramID,
	); err != nil {
		return domain.Room{}, err
	}
	room.TelegramID = domain.ChatID(telegramID.Int64)
	return room, nil
}
