package provision

import (
	"github.com/roach88/electrooms/internal/domain"
)

// Request asks Manage to provision one round of the latest election.
type Request struct {
	Round           int    `json:"round" validate:"gte=0"`
	NumParticipants int    `json:"num_participants" validate:"gte=0"`
	NumGroups       int    `json:"num_groups" validate:"gte=1"`
	IsLastRound     bool   `json:"is_last_round"`
	Height          *int64 `json:"height,omitempty" validate:"omitempty,gte=0"`
}

// Room statuses in a Report.
const (
	RoomProvisioned = "provisioned"
	RoomSkipped     = "skipped"
)

// Steps run after chat creation, in order.
const (
	StepAddAgent         = "add_agent"
	StepPromoteAgent     = "promote_agent"
	StepAddMembers       = "add_members"
	StepPromoteMembers   = "promote_members"
	StepInvitationLink   = "invitation_link"
	StepSendInvitation   = "send_invitation"
	StepWelcomeMessage   = "welcome_message"
	StepOrientationPhoto = "orientation_photo"
)

// Report describes what a Manage run did. On a fatal error it covers the
// work done before the failure.
type Report struct {
	RunID      string `json:"run_id"`
	ElectionID int64  `json:"election_id"`
	Round      int    `json:"round"`

	// AlreadyProvisioned is set when every room of the round had a chat
	// before the run started; nothing else was done.
	AlreadyProvisioned bool `json:"already_provisioned"`

	Participants int           `json:"participants"`
	Rooms        []RoomOutcome `json:"rooms"`
	Failures     []StepFailure `json:"failures,omitempty"`
}

// RoomOutcome is the result for one room.
type RoomOutcome struct {
	RoomID    int64         `json:"room_id"`
	Index     int           `json:"room_index"`
	NameShort string        `json:"name_short"`
	ChatID    domain.ChatID `json:"chat_id"`
	Status    string        `json:"status"`
	Members   int           `json:"members"`

	// MissingHandles lists members that could not be added to the chat.
	MissingHandles []string `json:"missing_handles,omitempty"`
}

// StepFailure is a failed step after chat creation. The room stays
// provisioned and the step is not retried.
type StepFailure struct {
	Code      ErrorCode `json:"code"`
	RoomIndex int       `json:"room_index"`
	Room      string    `json:"room"`
	Step      string    `json:"step"`
	Target    string    `json:"target,omitempty"`
	Error     string    `json:"error"`
}

// Provisioned returns the number of rooms provisioned by this run.
func (r *Report) Provisioned() int {
	n := 0
	for _, room := range r.Rooms {
		if room.Status == RoomProvisioned {
			n++
		}
	}
	return n
}
