package text

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/electrooms/internal/domain"
)

// Invitation is the private message carrying a room's invitation button.
// round is 0-based.
func (c *Catalog) Invitation(round int, isLastRound bool) string {
	if isLastRound {
		return c.p.Sprintf(keyInvitationFinal)
	}
	return c.p.Sprintf(keyInvitation, round+1)
}

// InvitationButton is the label of the invitation button.
func (c *Catalog) InvitationButton() string {
	return c.p.Sprintf(keyInvitationButton)
}

// Welcome is the message posted in a freshly created room: a title, the
// invitation link when there is one, then one line per member.
func (c *Catalog) Welcome(room domain.ExtendedRoom, inviteLink string, isLastRound bool) string {
	var b strings.Builder
	if isLastRound {
		b.WriteString(c.p.Sprintf(keyWelcomeTitleFinal))
	} else {
		b.WriteString(c.p.Sprintf(keyWelcomeTitle, room.Round+1, room.Index+1))
	}
	if inviteLink != "" {
		b.WriteString("\n")
		b.WriteString(c.p.Sprintf(keyWelcomeLink, inviteLink))
	}
	b.WriteString("\n\n")
	b.WriteString(c.p.Sprintf(keyWelcomeMembers, len(room.Members)))
	for _, m := range room.Members {
		b.WriteString("\n")
		b.WriteString(c.memberLine(m))
	}
	return b.String()
}

// memberLine renders "account (name) @handle".
func (c *Catalog) memberLine(m domain.ExtendedParticipant) string {
	parts := []string{norm.NFC.String(m.AccountName)}
	if name := strings.TrimSpace(m.ParticipantName); name != "" {
		parts = append(parts, "("+norm.NFC.String(name)+")")
	}
	if h := m.Handle(); h != "" {
		parts = append(parts, h)
	} else {
		parts = append(parts, "["+c.p.Sprintf(keyWelcomeNoHandle)+"]")
	}
	return strings.Join(parts, " ")
}

// PhotoCaption is the caption of the orientation photo.
func (c *Catalog) PhotoCaption() string {
	return c.p.Sprintf(keyPhotoCaption)
}

// Alert describes a failed provisioning step for operators.
type Alert struct {
	RunID  string
	Room   string // room short name, empty when the step is not tied to a room
	Step   string
	Target string
	Err    error
}

// OperatorAlert renders a for the operators' direct messages.
func (c *Catalog) OperatorAlert(a Alert) string {
	reason := "unknown error"
	if a.Err != nil {
		reason = a.Err.Error()
	}
	target := a.Target
	if target == "" {
		target = "-"
	}
	if a.Room == "" {
		return c.p.Sprintf(keyOperatorAlertNoRoom, a.RunID, a.Step, target, reason)
	}
	return c.p.Sprintf(keyOperatorAlert, a.RunID, a.Room, a.Step, target, reason)
}
