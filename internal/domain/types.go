package domain

import "time"

// PreelectionRound is the round of the per-election room holding participants
// that have not been delegated to a real room yet.
const PreelectionRound = -1

// ChatID identifies a group chat on the messaging platform.
// The zero value means "no chat".
type ChatID int64

// Election is a single election. The election with the highest ID is active.
type Election struct {
	ID          int64     `json:"id"`
	StartsAt    time.Time `json:"starts_at"`
	Description string    `json:"description,omitempty"`
}

// Participant is a member known to the store.
type Participant struct {
	AccountName     string `json:"account_name"`
	ParticipantName string `json:"participant_name,omitempty"`
	TelegramID      string `json:"telegram_id,omitempty"` // Empty when unknown
}

// ExtendedParticipant is a Participant enriched for one round.
type ExtendedParticipant struct {
	Participant
	Index   int    `json:"index"`    // Ledger-assigned ordinal; never reassigned here
	VoteFor string `json:"vote_for"` // Chosen peer, may be empty
	RoomID  int64  `json:"room_id"`  // Set once allocation completes
}

// Handle returns the participant's normalised chat handle, or "" if unknown.
func (p ExtendedParticipant) Handle() string {
	return NormalizeHandle(p.TelegramID)
}

// Room is one discussion room of an election round.
// (ElectionID, Round, Index) is unique.
type Room struct {
	ID         int64  `json:"id"`
	ElectionID int64  `json:"election_id"`
	Round      int    `json:"round"`
	Index      int    `json:"room_index"`
	NameLong   string `json:"name_long"`
	NameShort  string `json:"name_short"`
	TelegramID ChatID `json:"telegram_id,omitempty"`
}

// Provisioned reports whether the room's chat exists.
func (r Room) Provisioned() bool {
	return r.TelegramID != 0
}

// IsPreelection reports whether this is the election's preelection room.
func (r Room) IsPreelection() bool {
	return r.Round == PreelectionRound
}

// ExtendedRoom is a Room with its allocated members in allocation order.
type ExtendedRoom struct {
	Room
	Members []ExtendedParticipant `json:"members"`
}

// AddMember appends a member.
func (r *ExtendedRoom) AddMember(p ExtendedParticipant) {
	r.Members = append(r.Members, p)
}

// KnownHandles returns the normalised handles of members that have one,
// in member order, plus the account names of members without one.
func (r ExtendedRoom) KnownHandles() (handles []string, unknown []string) {
	for _, m := range r.Members {
		if h := m.Handle(); h != "" {
			handles = append(handles, h)
		} else {
			unknown = append(unknown, m.AccountName)
		}
	}
	return handles, unknown
}
