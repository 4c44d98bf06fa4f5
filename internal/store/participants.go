package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/electrooms/internal/domain"
)

// UpsertParticipant inserts a participant or updates its name and handle.
// An empty TelegramID is stored as NULL.
func (s *Store) UpsertParticipant(ctx context.Context, p domain.Participant) error {
	if p.AccountName == "" {
		return fmt.Errorf("upsert participant: empty account name")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO participants (account_name, participant_name, telegram_id)
		VALUES (?, ?, ?)
		ON CONFLICT(account_name) DO UPDATE SET
			participant_name = excluded.participant_name,
			telegram_id = excluded.telegram_id
	`, p.AccountName, p.ParticipantName, nullString(p.TelegramID))
	if err != nil {
		return fmt.Errorf("upsert participant %q: %w", p.AccountName, err)
	}
	return nil
}

// GetParticipant returns the participant with the given account name.
// found is false if the account is unknown.
func (s *Store) GetParticipant(ctx context.Context, accountName string) (p domain.Participant, found bool, err error) {
	var telegramID sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT account_name, participant_name, telegram_id
		FROM participants
		WHERE account_name = ?
	`, accountName).Scan(&p.AccountName, &p.ParticipantName, &telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, false, nil
	}
	if err != nil {
		return domain.Participant{}, false, fmt.Errorf("get participant %q: %w", accountName, err)
	}

	p.TelegramID = telegramID.String
	return p, true, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
